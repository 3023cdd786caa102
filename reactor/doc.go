// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness multiplexers behind api.Poller:
// epoll on Linux and kqueue on Darwin and the BSDs. The backend is chosen
// at build time; NewPoller returns api.ErrNotSupported elsewhere.
package reactor
