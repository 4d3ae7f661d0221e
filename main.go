package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	crewx "github.com/tanpawarit/hotel-finder/agent/agents/crew"
	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
	llmx "github.com/tanpawarit/hotel-finder/agent/llm"
	requestx "github.com/tanpawarit/hotel-finder/agent/request"
	toolx "github.com/tanpawarit/hotel-finder/agent/tool"
	webx "github.com/tanpawarit/hotel-finder/agent/web"
	browserbasex "github.com/tanpawarit/hotel-finder/pkg/browserbase"
	configx "github.com/tanpawarit/hotel-finder/pkg/config"
	logx "github.com/tanpawarit/hotel-finder/pkg/logger"
	_ "github.com/tanpawarit/hotel-finder/pkg/logger/autoload"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Re-init now that the env file has been loaded.
	logx.Init(*configx.MustNew[logx.Config]("LOG"))

	llmCfg := configx.MustNew[llmx.Config]("LLM")
	browserbaseCfg := configx.MustNew[browserbasex.Config]("BROWSERBASE")
	crewCfg := configx.MustNew[crewx.Config]("CREW")
	webCfg := configx.MustNew[webx.Config]("HTTP")

	creds := &contractx.Credentials{BrowserbaseAPIKey: browserbaseCfg.APIKey}

	handle, err := llmx.NewHandle(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize llm handle")
	}

	var pages toolx.PageFetcher
	if creds.HasBrowserbase() {
		pages = browserbasex.MustNew(*browserbaseCfg)
	} else {
		log.Warn().Msg("BROWSERBASE_API_KEY is not set, searches will be rejected until it is")
	}
	provider := toolx.NewProvider(pages)

	crew, err := crewx.New(ctx, handle, provider, creds, *crewCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build crew")
	}

	server, err := webx.NewServer(crew, requestx.NewBuilder(creds), *webCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build web server")
	}

	if err := server.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("web server stopped")
	}
	log.Info().Msg("shutdown complete")
}
