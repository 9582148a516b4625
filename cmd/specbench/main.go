// specbench runs the Agent Orchestration and Specification Core as an
// HTTP service: Socratic and direct-chat discovery sessions, a
// conflict-resolution workflow, and quality-gated phase advancement
// and code generation.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/specbench/workbench/pkg/agents"
	"github.com/specbench/workbench/pkg/callerapi"
	"github.com/specbench/workbench/pkg/config"
	"github.com/specbench/workbench/pkg/conflictengine"
	"github.com/specbench/workbench/pkg/llmgateway"
	"github.com/specbench/workbench/pkg/nlu"
	"github.com/specbench/workbench/pkg/orchestrator"
	"github.com/specbench/workbench/pkg/qualityengine"
	"github.com/specbench/workbench/pkg/sessionmgr"
	"github.com/specbench/workbench/pkg/specengine"
	"github.com/specbench/workbench/pkg/store/identitystore"
	"github.com/specbench/workbench/pkg/store/workstore"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	}

	httpAddr := ":" + getEnv("HTTP_PORT", "8080")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	identityClient, err := identitystore.NewClient(ctx, identitystore.Config{
		DSN:      getEnv("IDENTITY_DATABASE_URL", ""),
		Database: "identity",
	})
	if err != nil {
		log.Fatalf("failed to connect to identity store: %v", err)
	}
	defer identityClient.Close()

	workClient, err := workstore.NewClient(ctx, workstore.Config{
		DSN:      getEnv("WORK_DATABASE_URL", ""),
		Database: "workstore",
	})
	if err != nil {
		log.Fatalf("failed to connect to work store: %v", err)
	}
	defer workClient.Close()

	defaultProvider := cfg.Defaults.LLMProvider
	providerCfg, err := cfg.GetLLMProvider(defaultProvider)
	if err != nil {
		log.Fatalf("failed to resolve default LLM provider %q: %v", defaultProvider, err)
	}

	var provider llmgateway.Provider
	if providerCfg.Type == config.LLMProviderTypeStub {
		provider = llmgateway.NewStubProvider()
	} else {
		provider = llmgateway.NewHTTPProvider(providerCfg, os.Getenv(providerCfg.APIKeyEnv))
	}
	gateway := llmgateway.New(provider, time.Duration(providerCfg.Timeout)*time.Second)

	detector := conflictengine.New(gateway, defaultProvider, cfg.Conflict.SemanticSimilarityThreshold)
	specEngine := specengine.New(workClient, gateway, defaultProvider, detector)
	qualityEngine := qualityengine.New(cfg.Quality)
	nluService := nlu.New(gateway, cfg.NLU.MemoryWindow, defaultProvider)

	registry := map[string]agents.Agent{
		"project_manager": agents.NewProjectManager(workClient),
		"socratic":        agents.NewSocratic(workClient, gateway, defaultProvider),
		"context":         agents.NewContext(workClient, specEngine),
		"conflict":        agents.NewConflict(workClient, specEngine, cfg.Conflict),
		"quality":         agents.NewQuality(workClient, qualityEngine),
		"code_generator":  agents.NewCodeGenerator(workClient, qualityEngine, gateway, defaultProvider),
	}

	orch := orchestrator.New(workClient, qualityEngine, registry, cfg.Quality.MaxRegenerations)

	// direct_chat re-enters the orchestrator for operation intents, so
	// it's wired in after orch exists and added to the registry
	// separately rather than up front with the rest. The adapter folds
	// the orchestrator's Blocked response shape back into an agent
	// Result, since a chat-triggered operation surfaces blocks inline
	// in the conversation rather than as a top-level response.
	routeFromChat := func(ctx context.Context, agentID, action string, payload map[string]any) (*agents.Result, error) {
		actor, _ := payload["actor"].(string)
		resp, err := orch.Route(ctx, agentID, action, payload, orchestrator.Identity{UserID: actor})
		if err != nil {
			return nil, err
		}
		if resp.Blocked {
			return &agents.Result{Success: false, Data: map[string]any{
				"blocked":      true,
				"reason":       resp.BlockReason,
				"issues":       resp.BlockIssues,
				"alternatives": resp.Alternatives,
			}}, nil
		}
		return resp.Result, nil
	}
	directChat := agents.NewDirectChat(workClient, nluService, gateway, defaultProvider, routeFromChat)
	registry["direct_chat"] = directChat

	sessions := sessionmgr.New(workClient, orch)
	server := callerapi.NewServer(identityClient, workClient, sessions, orch)

	slog.Info("specbench starting", "addr", httpAddr, "config_dir", *configDir, "llm_provider", defaultProvider)
	go func() {
		if err := server.Run(ctx, httpAddr); err != nil {
			log.Fatalf("http server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("specbench shutting down")
	time.Sleep(100 * time.Millisecond)
}
