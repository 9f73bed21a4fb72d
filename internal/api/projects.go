package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"botwatch/internal/core/domain"
	"botwatch/internal/infra/storage"
	"botwatch/internal/registry"
)

type projectHandler struct {
	projects storage.ProjectRepository
}

func newProjectHandler(projects storage.ProjectRepository) *projectHandler {
	return &projectHandler{projects: projects}
}

func (h *projectHandler) Create(c *gin.Context) {
	var input struct {
		Name                string `json:"name" binding:"required"`
		ParentWalletAddress string `json:"parent_wallet_address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := registry.ValidateAddress(input.ParentWalletAddress); err != nil {
		httpError(c, err)
		return
	}

	project := &domain.Project{
		ID:                  uuid.NewString(),
		Name:                input.Name,
		ParentWalletAddress: input.ParentWalletAddress,
		Status:              domain.ProjectStatusActive,
	}
	if err := h.projects.Create(c.Request.Context(), project); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *projectHandler) List(c *gin.Context) {
	projects, err := h.projects.GetAll(c.Request.Context())
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *projectHandler) Get(c *gin.Context) {
	project, err := h.projects.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *projectHandler) UpdateStatus(c *gin.Context) {
	var input struct {
		Status domain.ProjectStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch input.Status {
	case domain.ProjectStatusActive, domain.ProjectStatusPaused, domain.ProjectStatusArchived:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown project status"})
		return
	}

	id := c.Param("id")
	if err := h.projects.UpdateStatus(c.Request.Context(), id, input.Status); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": input.Status})
}

func (h *projectHandler) Delete(c *gin.Context) {
	if err := h.projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}
