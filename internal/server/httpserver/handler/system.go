package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

// handlePeers handles GET /v1/system/peers.
func (h *Handler) handlePeers(w http.ResponseWriter, r *http.Request) {
	if h.peers == nil {
		h.handleServiceError(w, r, domain.ErrServiceUnavailable.WithDetails("peer check disabled"))
		return
	}

	peers := h.peers.Check(r.Context())
	resp := PeersResponse{Total: len(peers), Peers: peers}
	for _, p := range peers {
		if p.Reachable {
			resp.Reachable++
		}
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// handleBackup handles GET /v1/system/backup.
//
// The dump is streamed as it is produced. A failure before the first byte is
// reported as a storage error, a later one only aborts the stream.
func (h *Handler) handleBackup(w http.ResponseWriter, r *http.Request) {
	if h.backup == nil {
		h.handleServiceError(w, r, domain.ErrServiceUnavailable.WithDetails("backup disabled"))
		return
	}

	name := fmt.Sprintf("regmesh-%s.bak", time.Now().UTC().Format("20060102T150405Z"))
	bw := &backupWriter{w: w, header: func() {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.WriteHeader(http.StatusOK)
	}}

	if err := h.backup.Backup(r.Context(), bw); err != nil {
		if !bw.started {
			h.handleServiceError(w, r, domain.ErrStorageError.WithCause(err))
			return
		}
		h.logger.ErrorContext(r.Context(), "backup stream aborted", "bytes", bw.written, "error", err)
		return
	}
	if !bw.started {
		bw.header()
	}
	h.logger.InfoContext(r.Context(), "backup served", "bytes", bw.written)
}

// backupWriter defers the response header until the first write.
type backupWriter struct {
	w       http.ResponseWriter
	header  func()
	started bool
	written int64
}

func (b *backupWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !b.started {
		b.started = true
		b.header()
	}
	n, err := b.w.Write(p)
	b.written += int64(n)
	return n, err
}
