// File path: cmd/nlqd/integrations.go
package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ai-financer/nlquery/internal/common"
	"github.com/ai-financer/nlquery/internal/common/process"
	"github.com/ai-financer/nlquery/internal/vector"
)

// startChromaDB launches the bundled ChromaDB helper when the binary is on
// PATH. A missing binary is not fatal: the retriever degrades to keyword
// scoring without the vector index.
func startChromaDB(ctx context.Context, cfg vector.Config) *process.ManagedService {
	logger := common.Logger()
	binary, err := process.BinaryPath("chroma")
	if err != nil {
		logger.Warn("nlqd: chroma binary not found, skipping helper launch", "error", err)
		return nil
	}
	svc, err := process.Start(ctx, process.ServiceConfig{
		Name:    "chromadb",
		Command: binary,
		Args: []string{
			"run",
			"--host", cfg.Host,
			"--port", cfg.Port,
			"--path", filepath.Join("data", "chroma"),
		},
		ReadyURL:     fmt.Sprintf("%s://%s:%s/api/v1/heartbeat", cfg.Scheme, cfg.Host, cfg.Port),
		ReadyTimeout: 60 * time.Second,
		StopTimeout:  10 * time.Second,
	})
	if err != nil {
		logger.Warn("nlqd: chromadb helper launch failed", "error", err)
		return nil
	}
	return svc
}
