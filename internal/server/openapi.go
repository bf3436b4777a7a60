package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/pacer/internal/handler/health"
	"github.com/playperu/pacer/internal/pacer"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type pacerPath struct {
	PacerID string `path:"pacerID"`
}

type runPath struct {
	RunID string `path:"runID"`
}

type ingestInput struct {
	runPath
	IngestRequest
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "PACER API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Active run engine: GPS ingest, hype moments, haptic and voice cues, recaps.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(health.Response{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(health.Response{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/pacers
	listPacers, _ := r.NewOperationContext(http.MethodGet, "/api/pacers")
	listPacers.SetSummary("List pacers")
	listPacers.SetDescription("Returns every pacer a runner can pick, with memos and tracks.")
	listPacers.AddRespStructure([]pacer.Pacer{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listPacers)

	// POST /api/pacers
	createPacer, _ := r.NewOperationContext(http.MethodPost, "/api/pacers")
	createPacer.SetSummary("Create pacer")
	createPacer.SetDescription("Stores a pacer. An id is generated when blank; an existing id is replaced.")
	createPacer.AddReqStructure(pacer.Pacer{})
	createPacer.AddRespStructure(pacer.Pacer{}, openapi.WithHTTPStatus(http.StatusCreated))
	createPacer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(createPacer)

	// GET /api/pacers/{pacerID}
	getPacer, _ := r.NewOperationContext(http.MethodGet, "/api/pacers/{pacerID}")
	getPacer.SetSummary("Get pacer")
	getPacer.AddReqStructure(pacerPath{})
	getPacer.AddRespStructure(pacer.Pacer{}, openapi.WithHTTPStatus(http.StatusOK))
	getPacer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getPacer)

	// POST /api/runs
	startRun, _ := r.NewOperationContext(http.MethodPost, "/api/runs")
	startRun.SetSummary("Start run")
	startRun.SetDescription("Starts an active run with the selected pacers, in rotation order.")
	startRun.AddReqStructure(StartRunRequest{})
	startRun.AddRespStructure(RunResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	startRun.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(startRun)

	// GET /api/runs
	listRuns, _ := r.NewOperationContext(http.MethodGet, "/api/runs")
	listRuns.SetSummary("List runs")
	listRuns.SetDescription("Returns active runs and archived runs, newest archived first.")
	listRuns.AddRespStructure(RunListResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listRuns)

	// GET /api/runs/{runID}
	getRun, _ := r.NewOperationContext(http.MethodGet, "/api/runs/{runID}")
	getRun.SetSummary("Get run")
	getRun.SetDescription("Returns the session and stats of an active or archived run.")
	getRun.AddReqStructure(runPath{})
	getRun.AddRespStructure(RunResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getRun.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getRun)

	// GET /api/runs/{runID}/stats
	getStats, _ := r.NewOperationContext(http.MethodGet, "/api/runs/{runID}/stats")
	getStats.SetSummary("Run stats")
	getStats.SetDescription("Live stats of an active run, else the cached snapshot, else the archived totals.")
	getStats.AddReqStructure(runPath{})
	getStats.AddRespStructure(StatsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getStats.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getStats)

	// POST /api/runs/{runID}/points
	postPoints, _ := r.NewOperationContext(http.MethodPost, "/api/runs/{runID}/points")
	postPoints.SetSummary("Ingest GPS points")
	postPoints.SetDescription("Feeds GPS samples to an active run. Out-of-order samples are dropped.")
	postPoints.AddReqStructure(ingestInput{})
	postPoints.AddRespStructure(IngestResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postPoints.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postPoints.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postPoints)

	// GET /api/runs/{runID}/telemetry
	getTelemetry, _ := r.NewOperationContext(http.MethodGet, "/api/runs/{runID}/telemetry")
	getTelemetry.SetSummary("GPS telemetry socket")
	getTelemetry.SetDescription("Upgrades to a WebSocket. Send one GPS point per JSON message; each is answered with the current stats.")
	getTelemetry.AddReqStructure(runPath{})
	getTelemetry.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getTelemetry)

	// GET /api/runs/{runID}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/runs/{runID}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events: stats, hype, overlay_hidden, gps_status, speak, speak_stop, haptic, ended.")
	getEvents.AddReqStructure(runPath{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// POST /api/runs/{runID}/end
	endRun, _ := r.NewOperationContext(http.MethodPost, "/api/runs/{runID}/end")
	endRun.SetSummary("End run")
	endRun.SetDescription("Stops the run, archives the closed session and its GPS trace, and returns the recap.")
	endRun.AddReqStructure(runPath{})
	endRun.AddRespStructure(EndRunResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	endRun.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	endRun.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(endRun)

	// GET /api/runs/{runID}/gpx
	getGPX, _ := r.NewOperationContext(http.MethodGet, "/api/runs/{runID}/gpx")
	getGPX.SetSummary("Export GPX")
	getGPX.SetDescription("GPX 1.1 track of the run, titled like the activity recap.")
	getGPX.AddReqStructure(runPath{})
	getGPX.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("application/gpx+xml"))
	getGPX.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getGPX)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
