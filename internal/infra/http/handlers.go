package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
	"github.com/LexatoBR/lexato-extension-sub001/internal/infra/merkle"
	"github.com/LexatoBR/lexato-extension-sub001/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type artifactRequest struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	DataBase64   string   `json:"data_base64,omitempty"`
	ChunksBase64 []string `json:"chunks_base64,omitempty"`
}

type submitEvidenceRequest struct {
	TargetURL string                     `json:"target_url" binding:"required"`
	PageTitle string                     `json:"page_title"`
	Artifacts []artifactRequest          `json:"artifacts" binding:"required"`
	Consent   domain.ConsentConfig       `json:"consent"`
	Browser   *domain.BrowserEnvironment `json:"browser,omitempty"`
}

func (s *Server) handleSubmitEvidence(c *gin.Context) {
	var req submitEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	artifacts := make([]domain.Artifact, 0, len(req.Artifacts))
	for _, a := range req.Artifacts {
		artifact := domain.Artifact{Name: a.Name, Kind: domain.ArtifactKind(a.Kind)}
		if artifact.Kind == "" {
			artifact.Kind = domain.ArtifactImage
		}
		if a.DataBase64 != "" {
			data, err := base64.StdEncoding.DecodeString(a.DataBase64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "artifact " + a.Name + ": invalid base64 data"})
				return
			}
			artifact.Bytes = data
		}
		for i, chunk := range a.ChunksBase64 {
			data, err := base64.StdEncoding.DecodeString(chunk)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "artifact " + a.Name + ": invalid base64 chunk " + strconv.Itoa(i)})
				return
			}
			artifact.Chunks = append(artifact.Chunks, data)
		}
		artifacts = append(artifacts, artifact)
	}

	id, err := s.pipeline.Submit(usecase.SubmitParams{
		TargetURL: req.TargetURL,
		PageTitle: req.PageTitle,
		Artifacts: artifacts,
		Browser:   req.Browser,
		Consent:   req.Consent,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error("submit evidence", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "submission failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"evidence_id": id})
}

func (s *Server) handleGetEvidence(c *gin.Context) {
	record, err := s.evidence.FindByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "evidence not found"})
		return
	}
	if err != nil {
		s.logger.Error("find evidence", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleCancelEvidence(c *gin.Context) {
	id := c.Param("id")
	if !s.pipeline.Cancel(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no running pipeline for id"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"evidence_id": id, "canceled": true})
}

func (s *Server) handleGetProgress(c *gin.Context) {
	progress, ok := s.tracker.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no progress for id"})
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (s *Server) handleAllProgress(c *gin.Context) {
	c.JSON(http.StatusOK, s.tracker.GetAll())
}

func (s *Server) handleWatchdogs(c *gin.Context) {
	snaps, ok := s.pipeline.Watchdogs(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no running pipeline for id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchdogs": snaps})
}

func (s *Server) handleInclusionProof(c *gin.Context) {
	record, err := s.evidence.FindByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "evidence not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return
	}

	tree, err := merkle.Build(record.LeafDigests)
	if err != nil {
		s.logger.Error("rebuild integrity tree", zap.String("id", record.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "proof generation failed"})
		return
	}
	proof, err := tree.Proof(index)
	if errors.Is(err, merkle.ErrIndexOutOfRange) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "leaf index out of range"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "proof generation failed"})
		return
	}
	c.JSON(http.StatusOK, proof)
}

func (s *Server) handleVerifyProof(c *gin.Context) {
	var proof merkle.Proof
	if err := c.ShouldBindJSON(&proof); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proof body: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": merkle.VerifyProof(proof)})
}
