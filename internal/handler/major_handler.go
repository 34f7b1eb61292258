package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/middleware"
	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/response"
	"github.com/stemsi/roster-backend/internal/service"
	"github.com/stemsi/roster-backend/internal/validator"
)

type MajorHandler struct {
	majorService *service.MajorService
	log          zerolog.Logger
}

func NewMajorHandler(majorService *service.MajorService, log zerolog.Logger) *MajorHandler {
	return &MajorHandler{
		majorService: majorService,
		log:          log.With().Str("component", "major_handler").Logger(),
	}
}

func (h *MajorHandler) List(c *gin.Context) {
	majors, err := h.majorService.List(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"majors": majors})
}

func (h *MajorHandler) Create(c *gin.Context) {
	var req model.MajorRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	major, err := h.majorService.Create(c.Request.Context(), middleware.GetIdentity(c), req.Name)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"major": major})
}

func (h *MajorHandler) Rename(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req model.MajorRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	major, err := h.majorService.Rename(c.Request.Context(), middleware.GetIdentity(c), id, req.Name)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"major": major})
}

func (h *MajorHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.majorService.Delete(c.Request.Context(), middleware.GetIdentity(c), id); err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
