// File path: cmd/nlqd/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ai-financer/nlquery/internal/api"
	"github.com/ai-financer/nlquery/internal/catalog"
	"github.com/ai-financer/nlquery/internal/common"
	"github.com/ai-financer/nlquery/internal/guardrail"
	"github.com/ai-financer/nlquery/internal/llm"
	"github.com/ai-financer/nlquery/internal/pipeline"
	"github.com/ai-financer/nlquery/internal/registry"
	"github.com/ai-financer/nlquery/internal/retriever"
	"github.com/ai-financer/nlquery/internal/router"
	"github.com/ai-financer/nlquery/internal/synthesizer"
	"github.com/ai-financer/nlquery/internal/vector"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("nlqd: .env file not loaded", "error", err)
	} else {
		logger.Info("nlqd: environment loaded from .env")
	}

	addr := flag.String("addr", ":8080", "listen address")
	catalogPath := flag.String("catalog", defaultCatalogPath(), "path to the SQLite analytical database")
	autoStartDefault := false
	if env := strings.TrimSpace(os.Getenv("NLQD_AUTOSTART")); env != "" {
		if parsed, err := strconv.ParseBool(env); err == nil {
			autoStartDefault = parsed
		}
	}
	autoStartIntegrations := flag.Bool("auto-start-integrations", autoStartDefault, "launch the bundled ChromaDB helper when available")
	flag.Parse()

	logger.Info("nlqd: startup initiated", "addr", *addr, "catalog", *catalogPath)

	catalogCfg, err := catalog.LoadConfig()
	if err != nil {
		logger.Error("nlqd: catalog config load failed", "error", err)
		fmt.Println("catalog config error:", err)
		os.Exit(1)
	}
	if trimmed := strings.TrimSpace(*catalogPath); trimmed != "" {
		catalogCfg.Path = trimmed
	}
	store, err := catalog.OpenWithConfig(catalogCfg)
	if err != nil {
		logger.Error("nlqd: catalog open failed", "error", err)
		fmt.Println("catalog error:", err)
		os.Exit(1)
	}
	defer store.Close()

	datasets, err := store.LoadDatasets(ctx)
	if err != nil {
		logger.Error("nlqd: dataset load failed", "error", err)
		fmt.Println("dataset load error:", err)
		os.Exit(1)
	}
	reg, err := registry.New(datasets)
	if err != nil {
		logger.Error("nlqd: registry construction failed", "error", err)
		fmt.Println("registry error:", err)
		os.Exit(1)
	}
	logger.Info("nlqd: dataset registry ready", "datasets", reg.Len())

	provider := llm.NewProvider()
	logger.Info("nlqd: llm provider ready", "provider", provider.Name())

	vectorCfg, err := vector.LoadConfig()
	if err != nil {
		logger.Error("nlqd: vector config load failed", "error", err)
		fmt.Println("vector config error:", err)
		os.Exit(1)
	}
	if *autoStartIntegrations {
		if svc := startChromaDB(ctx, vectorCfg); svc != nil {
			defer svc.Stop(context.Background())
		}
	}
	vectorClient, err := vector.New(ctx, vectorCfg)
	if err != nil {
		logger.Error("nlqd: vector client init failed", "error", err)
		fmt.Println("vector error:", err)
		os.Exit(1)
	}
	if vectorClient.Available() {
		logger.Info("nlqd: chromadb available", "collection", vectorClient.Collection())
		go indexDatasets(ctx, vectorClient, provider, reg)
	} else {
		logger.Warn("nlqd: chromadb unreachable, keyword retrieval only", "collection", vectorClient.Collection())
	}

	routerCfg, err := router.LoadConfig()
	if err != nil {
		logger.Error("nlqd: router config load failed", "error", err)
		fmt.Println("router config error:", err)
		os.Exit(1)
	}
	guardrailCfg, err := guardrail.LoadConfig()
	if err != nil {
		logger.Error("nlqd: guardrail config load failed", "error", err)
		fmt.Println("guardrail config error:", err)
		os.Exit(1)
	}

	pipe := pipeline.New(
		reg,
		retriever.New(reg, provider, vectorClient),
		router.New(reg, routerCfg),
		synthesizer.New(provider),
		guardrail.New(guardrailCfg),
		store,
	)

	server, err := api.NewServer(ctx, pipe)
	if err != nil {
		logger.Error("nlqd: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("nlqd: server listening", "addr", *addr, "health", "/healthz", "metrics", "/metrics")
	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("nlqd: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("nlqd: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

// indexDatasets embeds the dataset descriptors and upserts them into the
// vector index in the background. Failures are logged only; the retriever
// degrades to keyword scoring until the index is populated.
func indexDatasets(ctx context.Context, client *vector.Client, provider llm.Provider, reg *registry.Registry) {
	logger := common.Logger()
	datasets := reg.List()
	documents := make([]string, 0, len(datasets))
	for _, ds := range datasets {
		documents = append(documents, vector.DescriptorText(ds))
	}
	vectors, err := provider.Embed(ctx, documents)
	if err != nil {
		logger.Warn("nlqd: descriptor embedding failed, semantic retrieval disabled", "error", err)
		return
	}
	if err := client.IndexDatasets(ctx, datasets, vectors); err != nil {
		logger.Warn("nlqd: descriptor indexing failed", "error", err)
		return
	}
	logger.Info("nlqd: dataset descriptors indexed", "datasets", len(datasets))
}

func defaultCatalogPath() string {
	return filepath.Join("data", "analytics.db")
}
