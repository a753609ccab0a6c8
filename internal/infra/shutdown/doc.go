// Package shutdown provides graceful shutdown for RegMesh.
//
// Components register named hooks; on SIGINT, SIGTERM or cancellation of
// the wait context the hooks run in reverse registration order under a
// shared timeout.
//
// Usage:
//
//	h := shutdown.NewHandler(30*time.Second, logger)
//	h.OnShutdown("http server", httpServer.Shutdown)
//	err := h.Wait(ctx)
package shutdown
