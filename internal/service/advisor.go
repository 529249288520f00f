package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kdduha/glowu/backend/internal/gateway"
	"github.com/kdduha/glowu/backend/internal/upload"
)

type modelGateway interface {
	Invoke(ctx context.Context, task, prompt string, img *upload.Image) gateway.Result
}

// Advice holds the two independent model results for one upload.
type Advice struct {
	Analysis        gateway.Result
	Recommendations gateway.Result
}

type AdvisorService struct {
	logger  *zap.Logger
	gateway modelGateway
}

func NewAdvisorService(logger *zap.Logger, gw modelGateway) *AdvisorService {
	return &AdvisorService{
		logger:  logger,
		gateway: gw,
	}
}

// Advise runs the analysis and recommendation calls concurrently. Each call
// reads the shared image and writes only its own field.
func (a *AdvisorService) Advise(ctx context.Context, img *upload.Image, query string) *Advice {
	advice := &Advice{}

	var g errgroup.Group
	g.Go(func() error {
		a.logger.Info("making request for skin analysis")
		advice.Analysis = a.gateway.Invoke(ctx, TaskAnalysis, ComposePrompt(AnalysisPrompt, query), img)
		return nil
	})
	g.Go(func() error {
		a.logger.Info("making request for product recommendations")
		advice.Recommendations = a.gateway.Invoke(ctx, TaskRecommendations, ComposePrompt(RecommendationPrompt, query), img)
		return nil
	})
	_ = g.Wait()

	return advice
}
