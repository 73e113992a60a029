package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/pfrederiksen/theatre-alerts/internal/config"
	"github.com/pfrederiksen/theatre-alerts/internal/handler"
	"github.com/pfrederiksen/theatre-alerts/internal/logger"
	"github.com/pfrederiksen/theatre-alerts/internal/metrics"
)

// calendarSuffix routes a request to the calendar digest; anything else,
// including scheduled invocations with no path, runs the venue alert
const calendarSuffix = "/calendar"

type lambdaHandler struct {
	h *handler.Handler
}

// Handle maps an API Gateway proxy request onto the alert handler
func (l *lambdaHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger.Info("Invocation", logger.Fields{
		"path":       req.Path,
		"method":     req.HTTPMethod,
		"request_id": req.RequestContext.RequestID,
	})

	var resp handler.Response
	if strings.HasSuffix(strings.TrimRight(req.Path, "/"), calendarSuffix) {
		resp = l.h.Calendar(ctx)
	} else {
		body := []byte(req.Body)
		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				// treated like any other malformed body
				decoded = nil
			}
			body = decoded
		}
		resp = l.h.Alerts(ctx, body)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logger.LevelInfo
	}
	logger.SetDefault(logger.NewWithFormat(level, logger.Format(cfg.Log.Format), os.Stdout))

	svc, err := handler.NewServices(cfg, metrics.New(nil), handler.ServiceOptions{})
	if err != nil {
		logger.Error("Failed to initialize services", nil, err)
		os.Exit(1)
	}

	l := &lambdaHandler{h: handler.New(svc)}
	lambda.Start(l.Handle)
}
