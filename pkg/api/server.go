package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the API on addr until ctx is canceled, then shuts down gracefully
func (h *Handler) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.WithField("addr", addr).Info("Starting report API")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	h.logger.Info("Shutting down report API")
	return srv.Shutdown(shutdownCtx)
}

// ServerJob runs the API as a scheduler job
type ServerJob struct {
	handler *Handler
	addr    string

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewServerJob(handler *Handler, addr string) *ServerJob {
	return &ServerJob{handler: handler, addr: addr}
}

func (j *ServerJob) Name() string {
	return "report_api"
}

func (j *ServerJob) Execute(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	j.mu.Lock()
	j.cancel = cancel
	j.mu.Unlock()
	defer cancel()
	return j.handler.Serve(ctx, j.addr)
}

func (j *ServerJob) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		j.cancel()
	}
}
