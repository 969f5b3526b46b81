// Package httpapi exposes the stable HTTP surface spec.md §6 requires
// the core to satisfy: job submission, status polling, result retrieval,
// transcript/audio download, and deletion. Routing follows the teacher's
// httprouter + middleware.IsAuthorized pattern from cmd/http-server and
// package middleware.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/clipmind/video-report/jobstore"
	"github.com/clipmind/video-report/log"
	"github.com/clipmind/video-report/model"
	"github.com/clipmind/video-report/pipeline"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

// Server holds the collaborators the HTTP layer needs: the coordinator to
// start jobs and the store to read their state back. It owns no pipeline
// logic of its own, mirroring the teacher's handlers.CatalystAPIHandlers
// thin-adapter shape.
type Server struct {
	Coordinator *pipeline.Coordinator
	Jobs        jobstore.Store
	APIToken    string
	UploadDir   string
}

func NewServer(coordinator *pipeline.Coordinator, jobs jobstore.Store, apiToken, uploadDir string) *Server {
	return &Server{Coordinator: coordinator, Jobs: jobs, APIToken: apiToken, UploadDir: uploadDir}
}

func (s *Server) Router() *httprouter.Router {
	r := httprouter.New()
	r.POST("/videos/process", s.authorized(s.processDrive))
	r.POST("/videos/process-youtube", s.authorized(s.processSite))
	r.POST("/videos/process-upload", s.authorized(s.processUpload))
	r.GET("/videos/status/:id", s.authorized(s.status))
	r.GET("/videos/results/:id", s.authorized(s.results))
	r.GET("/videos/:id/download/transcript", s.authorized(s.downloadTranscript))
	r.GET("/videos/:id/download/audio", s.authorized(s.downloadAudio))
	r.DELETE("/videos/:id", s.authorized(s.deleteJob))
	r.GET("/ok", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func (s *Server) authorized(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if s.APIToken == "" {
			next(w, r, ps)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token != s.APIToken {
			writeError(w, http.StatusUnauthorized, "invalid or missing API token")
			return
		}
		next(w, r, ps)
	}
}

type processRequest struct {
	SourceRef string `json:"source_ref"`
}

type processResponse struct {
	JobID    string  `json:"job_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
}

func (s *Server) start(w http.ResponseWriter, r *http.Request, kind model.SourceKind, ref string) {
	job := model.New(uuid.NewString(), kind, ref)
	s.Coordinator.StartJob(job)
	writeJSON(w, http.StatusAccepted, processResponse{JobID: job.ID, Status: string(job.Status), Progress: job.Progress})
}

func (s *Server) processDrive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SourceRef == "" {
		writeError(w, http.StatusBadRequest, "source_ref is required")
		return
	}
	s.start(w, r, model.SourceDrive, req.SourceRef)
}

func (s *Server) processSite(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SourceRef == "" {
		writeError(w, http.StatusBadRequest, "source_ref is required")
		return
	}
	s.start(w, r, model.SourceSite, req.SourceRef)
}

// processUpload streams a multipart file to UploadDir and starts a job
// against the staged local path, matching the teacher's
// UploadJobPayload.SourceFile convention of treating the pipeline's
// input as a resolvable URL/path.
func (s *Server) processUpload(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseMultipartForm(1 << 30); err != nil {
		writeError(w, http.StatusBadRequest, "could not parse multipart upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing video field: "+err.Error())
		return
	}
	defer file.Close()

	jobID := uuid.NewString()
	destPath := filepath.Join(s.UploadDir, jobID+"_upload"+filepath.Ext(header.Filename))
	out, err := os.Create(destPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not stage upload")
		return
	}
	defer out.Close()

	if _, err := out.ReadFrom(file); err != nil {
		writeError(w, http.StatusInternalServerError, "could not write upload")
		return
	}

	job := model.New(jobID, model.SourceUpload, destPath)
	job.VideoName = header.Filename
	s.Coordinator.StartJob(job)
	writeJSON(w, http.StatusAccepted, processResponse{JobID: job.ID, Status: string(job.Status), Progress: job.Progress})
}

type statusResponse struct {
	Status        string           `json:"status"`
	Progress      float64          `json:"progress"`
	CurrentAction string           `json:"current_action"`
	Log           []model.LogEntry `json:"log"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	job, err := s.Jobs.Read(ps.ByName("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:        string(job.Status),
		Progress:      job.Progress,
		CurrentAction: job.CurrentAction,
		Log:           job.Log,
	})
}

func (s *Server) results(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	job, err := s.Jobs.Read(ps.ByName("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	switch job.Status {
	case model.StatusCompleted:
		writeJSON(w, http.StatusOK, job)
	case model.StatusFailed:
		writeError(w, http.StatusInternalServerError, job.ErrorMessage)
	default:
		writeError(w, http.StatusBadRequest, "job is still in progress")
	}
}

func (s *Server) downloadTranscript(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	job, err := s.Jobs.Read(ps.ByName("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	format := r.URL.Query().Get("format")
	if format == "txt" {
		w.Header().Set("Content-Type", "text/plain")
		for _, seg := range job.Transcript {
			fmt.Fprintf(w, "[%.0fs-%.0fs] %s\n", seg.StartS, seg.EndS, seg.Text)
		}
		return
	}
	writeJSON(w, http.StatusOK, job.Transcript)
}

// downloadAudio serves the merged audio file the orchestrator
// deliberately keeps around after cleanup (pipeline.Coordinator retains
// it precisely so this endpoint can serve it).
func (s *Server) downloadAudio(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	job, err := s.Jobs.Read(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != model.StatusCompleted {
		writeError(w, http.StatusBadRequest, "job is still in progress")
		return
	}
	http.ServeFile(w, r, filepath.Join(filepath.Dir(job.LocalPath), id+"_audio.wav"))
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.Jobs.Delete(ps.ByName("id"))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.LogNoRequestID("failed to encode HTTP response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error_message": message})
}
