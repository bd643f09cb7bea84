package controller

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Scalingo/sclng-repo-health/config"
	"github.com/Scalingo/sclng-repo-health/model"
	"github.com/Scalingo/sclng-repo-health/service"
	"github.com/gin-gonic/gin"

	log "github.com/sirupsen/logrus"
)

type APIController interface {
	GetRepositories(c *gin.Context)
	GetRepository(c *gin.Context)
	CompareRepositories(c *gin.Context)
	Health(c *gin.Context)
}

type apiController struct {
	githubService service.GithubService
	config        config.Config
}

func NewAPIController(config config.Config, service service.GithubService) APIController {
	return apiController{
		githubService: service,
		config:        config,
	}
}

func (s apiController) GetRepositories(c *gin.Context) {
	var searchQuery model.SearchQuery
	if err := c.ShouldBindQuery(&searchQuery); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %s", model.ErrInvalidQuery, err.Error()))
		return
	}

	// execute the request
	result, err := s.githubService.SearchRepositories(c.Request.Context(), searchQuery)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s apiController) GetRepository(c *gin.Context) {
	repo, err := s.githubService.GetRepository(c.Request.Context(), c.Param("owner"), c.Param("name"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, repo)
}

// CompareRepositories accept ?repos=a/b,c/d as well as repeated repos parameters
func (s apiController) CompareRepositories(c *gin.Context) {
	var fullNames []string

	for _, value := range c.QueryArray("repos") {
		for _, fullName := range strings.Split(value, ",") {
			if fullName = strings.TrimSpace(fullName); fullName != "" {
				fullNames = append(fullNames, fullName)
			}
		}
	}

	comparison, err := s.githubService.CompareRepositories(c.Request.Context(), fullNames)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, comparison)
}

func (s apiController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s apiController) abortWithError(c *gin.Context, err error) {
	status := model.HTTPStatus(err)

	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
	}

	c.AbortWithStatusJSON(status, model.NewAPIError(err))
}
