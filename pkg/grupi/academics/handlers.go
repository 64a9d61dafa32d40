// Package academics exposes the read-only academic reference data: tracks,
// courses, districts, campuses, integrative projects and tags.
package academics

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grupi/grupi-server/pkg/grupi/models"
	"gorm.io/gorm"
)

// Handler handles reference-data requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new academics handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) ListTracks(c *gin.Context) {
	var tracks []models.Track
	if err := h.db.Order("name").Find(&tracks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tracks"})
		return
	}
	c.JSON(http.StatusOK, tracks)
}

func (h *Handler) ListCourses(c *gin.Context) {
	var courses []models.Course
	if err := h.db.Preload("Track").Order("name").Find(&courses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch courses"})
		return
	}
	c.JSON(http.StatusOK, courses)
}

func (h *Handler) ListDistricts(c *gin.Context) {
	var districts []models.District
	if err := h.db.Order("number").Find(&districts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch districts"})
		return
	}
	c.JSON(http.StatusOK, districts)
}

func (h *Handler) ListCampuses(c *gin.Context) {
	var campuses []models.Campus
	if err := h.db.Preload("District").Order("name").Find(&campuses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch campuses"})
		return
	}
	c.JSON(http.StatusOK, campuses)
}

func (h *Handler) ListIntegrativeProjects(c *gin.Context) {
	var projects []models.IntegrativeProject
	if err := h.db.Order("number").Find(&projects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch integrative projects"})
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *Handler) ListTags(c *gin.Context) {
	var tags []models.Tag
	if err := h.db.Order("name").Find(&tags).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}
	c.JSON(http.StatusOK, tags)
}

// RegisterRoutes registers reference-data routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tracks", h.ListTracks)
	rg.GET("/courses", h.ListCourses)
	rg.GET("/districts", h.ListDistricts)
	rg.GET("/campuses", h.ListCampuses)
	rg.GET("/integrative-projects", h.ListIntegrativeProjects)
	rg.GET("/tags", h.ListTags)
}
