/*
main.go - AWS Lambda entrypoint

PURPOSE:
  Serves the calculation endpoints from a Lambda function URL, without
  the HTTP server or the refresh scheduler. Request and response bodies
  match the /api/bond/* endpoints.

ROUTES (by path suffix):
  /points-needed   PointsNeededRequest -> PointsNeededDTO
  /modifiers       ModifiersRequest    -> ModifiersResultDTO
  /estimate        EstimateRequest     -> EstimateDTO
  anything else    PlanRequest         -> PlanDTO

CATALOG:
  When BONDCALC_CATALOG_DATA_DIR points at bundled catalog files, servant
  and quest ids resolve against them. Otherwise requests must carry their
  own milestones and use presets or custom values.

SEE ALSO:
  - api/resolve.go: Request resolution
*/
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/bondcalc/bond-engine/api"
	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/bond/store"
	"github.com/bondcalc/bond-engine/config"
	"github.com/bondcalc/bond-engine/generic"
	"github.com/bondcalc/bond-engine/observability"
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

type function struct {
	resolver *api.Resolver
	logger   *zap.Logger
}

func newFunction(ctx context.Context, cfg config.Config, logger *zap.Logger) (*function, error) {
	est, err := cfg.Estimator.Estimator()
	if err != nil {
		return nil, err
	}

	catalog := store.NewMemory()
	if dir := cfg.Catalog.DataDir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			if _, err := catalog.LoadFiles(ctx, dir); err != nil {
				return nil, err
			}
		}
	}
	return &function{resolver: api.NewResolver(catalog, est), logger: logger}, nil
}

func (f *function) handle(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(http.StatusBadRequest, "invalid base64 body", "")
		}
		body = string(decoded)
	}

	var (
		result any
		err    error
	)
	path := strings.TrimRight(event.RawPath, "/")
	switch {
	case strings.HasSuffix(path, "/points-needed"):
		var req api.PointsNeededRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			return errResp(http.StatusBadRequest, "invalid JSON", err.Error())
		}
		result, err = f.resolver.PointsNeeded(ctx, req)
	case strings.HasSuffix(path, "/modifiers"):
		var req api.ModifiersRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			return errResp(http.StatusBadRequest, "invalid JSON", err.Error())
		}
		result, err = f.resolver.BondPerRun(req)
	case strings.HasSuffix(path, "/estimate"):
		var req api.EstimateRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			return errResp(http.StatusBadRequest, "invalid JSON", err.Error())
		}
		result, err = f.resolver.Estimate(ctx, req)
	default:
		var req api.PlanRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			return errResp(http.StatusBadRequest, "invalid JSON", err.Error())
		}
		result, err = f.resolver.Plan(ctx, req)
	}

	switch {
	case err == nil:
	case generic.IsClientError(err):
		return errResp(http.StatusBadRequest, generic.UserMessage(err), err.Error())
	case bond.IsNotFound(err):
		return errResp(http.StatusNotFound, "Not found", err.Error())
	default:
		f.logger.Error("request failed", zap.String("path", event.RawPath), zap.Error(err))
		return errResp(http.StatusInternalServerError, "Internal error", err.Error())
	}

	respJSON, _ := json.Marshal(result)
	return events.LambdaFunctionURLResponse{StatusCode: http.StatusOK, Headers: jsonHeader, Body: string(respJSON)}, nil
}

func errResp(code int, msg, details string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(api.ErrorResponse{Error: msg, Details: details})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	f, err := newFunction(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("lambda init failed", zap.Error(err))
	}
	lambda.Start(f.handle)
}
