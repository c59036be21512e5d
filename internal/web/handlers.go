package web

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sweeney/glosa-predictor/internal/advisory"
	"github.com/sweeney/glosa-predictor/internal/mqtt"
	"github.com/sweeney/glosa-predictor/internal/phase"
	"github.com/sweeney/glosa-predictor/internal/status"
)

// maxBodyBytes caps request bodies on the JSON endpoints.
const maxBodyBytes = 64 << 10

// RunningMessage is the liveness message returned by GET /.
const RunningMessage = "GLOSA AI Service Running"

// LivenessResponse is the body of GET /.
type LivenessResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
}

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	JunctionID *string  `json:"junction_id"`
	Timestamp  *float64 `json:"timestamp"`
}

// PredictionResponse is the body returned by POST /predict.
type PredictionResponse struct {
	JunctionID      string  `json:"junction_id"`
	CurrentStatus   string  `json:"current_status"`
	SecondsToChange float64 `json:"seconds_to_change"`
	CycleTime       int     `json:"cycle_time"`
}

// AdvisoryRequest is the body of POST /advisory. Either DistanceM or all
// four coordinates must be given.
type AdvisoryRequest struct {
	JunctionID  *string  `json:"junction_id"`
	Timestamp   *float64 `json:"timestamp"`
	DistanceM   *float64 `json:"distance_m"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	JunctionLat *float64 `json:"junction_lat"`
	JunctionLng *float64 `json:"junction_lng"`
}

// AdvisoryResponse is the body returned by POST /advisory.
type AdvisoryResponse struct {
	JunctionID       string  `json:"junction_id"`
	DistanceM        int     `json:"distance_m"`
	SignalStatus     string  `json:"signal_status"`
	SecondsToChange  float64 `json:"seconds_to_change"`
	RecommendedSpeed int     `json:"recommended_speed_kmh"`
	Message          string  `json:"message"`
	Provider         string  `json:"provider"`
}

// ErrorResponse is returned with every 4xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

var (
	errMissingJunction  = errors.New("junction_id is required")
	errMissingTimestamp = errors.New("timestamp is required and must be a number")
	errMissingPosition  = errors.New("distance_m or lat, lng, junction_lat and junction_lng are required")
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeBody(w, r, http.StatusOK, LivenessResponse{
		Status:   RunningMessage,
		Provider: s.tracker.Snapshot().Config.Provider(),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.JunctionID == nil || *req.JunctionID == "" {
		writeError(w, r, http.StatusUnprocessableEntity, errMissingJunction.Error())
		return
	}
	if req.Timestamp == nil {
		writeError(w, r, http.StatusUnprocessableEntity, errMissingTimestamp.Error())
		return
	}

	p := phase.Predict(*req.JunctionID, *req.Timestamp)
	s.tracker.RecordPrediction(p.Status)
	s.publishPrediction(r, *req.Timestamp, p)

	writeBody(w, r, http.StatusOK, PredictionResponse{
		JunctionID:      p.JunctionID,
		CurrentStatus:   string(p.Status),
		SecondsToChange: p.SecondsToChange,
		CycleTime:       p.CycleTime,
	})
}

func (s *Server) handleAdvisory(w http.ResponseWriter, r *http.Request) {
	var req AdvisoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.JunctionID == nil || *req.JunctionID == "" {
		writeError(w, r, http.StatusUnprocessableEntity, errMissingJunction.Error())
		return
	}
	distance, ok := req.distance()
	if !ok {
		writeError(w, r, http.StatusUnprocessableEntity, errMissingPosition.Error())
		return
	}

	ts := phase.FromTime(s.now())
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}
	s.publishTelemetry(r, req, ts, distance)

	p := phase.Predict(*req.JunctionID, ts)
	adv := advisory.Calculate(distance, p.SecondsToChange, p.Status)
	s.tracker.RecordAdvisory()

	writeBody(w, r, http.StatusOK, AdvisoryResponse{
		JunctionID:       p.JunctionID,
		DistanceM:        int(math.Round(distance)),
		SignalStatus:     string(p.Status),
		SecondsToChange:  p.SecondsToChange,
		RecommendedSpeed: adv.SpeedKmh,
		Message:          adv.Message,
		Provider:         s.tracker.Snapshot().Config.Provider(),
	})
}

// distance resolves the vehicle's distance to the junction in metres.
func (req AdvisoryRequest) distance() (float64, bool) {
	if req.DistanceM != nil {
		if *req.DistanceM < 0 || math.IsNaN(*req.DistanceM) || math.IsInf(*req.DistanceM, 0) {
			return 0, false
		}
		return *req.DistanceM, true
	}
	if req.Lat == nil || req.Lng == nil || req.JunctionLat == nil || req.JunctionLng == nil {
		return 0, false
	}
	return advisory.Distance(*req.Lat, *req.Lng, *req.JunctionLat, *req.JunctionLng), true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, s.tracker.Snapshot()); err != nil {
		log.WithError(err).Error("render status page")
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}

// publishPrediction hands a served prediction to MQTT. Failures are logged
// and never fail the request.
func (s *Server) publishPrediction(r *http.Request, ts float64, p phase.Prediction) {
	if s.publisher == nil {
		return
	}
	event := mqtt.PredictionEvent{
		ID:         uuid.NewString(),
		ServedAt:   s.now(),
		Timestamp:  ts,
		Prediction: p,
	}
	if err := s.publisher.PublishPrediction(event); err != nil {
		log.WithFields(logrus.Fields{
			"request_id": requestIDFrom(r.Context()),
			"junction":   p.JunctionID,
		}).WithError(err).Warn("publish prediction")
	}
}

// publishTelemetry hands the vehicle report of an advisory request to MQTT.
// Failures are logged and never fail the request.
func (s *Server) publishTelemetry(r *http.Request, req AdvisoryRequest, ts, distance float64) {
	if s.publisher == nil {
		return
	}
	event := mqtt.TelemetryEvent{
		ID:         uuid.NewString(),
		ReceivedAt: s.now(),
		JunctionID: *req.JunctionID,
		Timestamp:  ts,
		DistanceM:  distance,
	}
	if req.DistanceM == nil {
		event.Lat, event.Lng = req.Lat, req.Lng
	}
	if err := s.publisher.PublishTelemetry(event); err != nil {
		log.WithFields(logrus.Fields{
			"request_id": requestIDFrom(r.Context()),
			"junction":   event.JunctionID,
		}).WithError(err).Warn("publish telemetry")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("invalid JSON body: unexpected data after JSON value")
	}
	return nil
}
