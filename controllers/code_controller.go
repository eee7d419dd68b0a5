package controllers

import (
	"net/http"

	"codegalaxy/db"
	"codegalaxy/internal/logger"
	"codegalaxy/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CodeController serves the AI tasks, the model catalogue and code history.
type CodeController struct {
	codes   *services.CodeService
	gateway *services.Gateway
	store   db.Store
	log     *zap.Logger
}

func NewCodeController(codes *services.CodeService, gateway *services.Gateway, store db.Store, log *zap.Logger) *CodeController {
	return &CodeController{codes: codes, gateway: gateway, store: store, log: logger.OrNop(log)}
}

func (cc *CodeController) Home(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	user, err := cc.store.GetUserByID(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusOK, cc.codes.Home(c.Request.Context(), user))
}

func (cc *CodeController) Models(c *gin.Context) {
	names := cc.gateway.Models()
	out := make([]services.ModelDetails, 0, len(names))
	for _, name := range names {
		out = append(out, cc.gateway.ModelInfo(name))
	}
	c.JSON(http.StatusOK, gin.H{"models": out})
}

func (cc *CodeController) Model(c *gin.Context) {
	name := c.Param("name")
	if !cc.gateway.IsSupported(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown model"})
		return
	}
	c.JSON(http.StatusOK, cc.gateway.ModelInfo(name))
}

func (cc *CodeController) Generate(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var request services.GenerateInput
	if !bindJSON(c, &request) {
		return
	}
	result, err := cc.codes.Generate(c.Request.Context(), actor, request)
	if err != nil {
		respondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (cc *CodeController) Explain(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var request services.ExplainInput
	if !bindJSON(c, &request) {
		return
	}
	result, err := cc.codes.Explain(c.Request.Context(), actor, request)
	if err != nil {
		respondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (cc *CodeController) Improve(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var request services.ImproveInput
	if !bindJSON(c, &request) {
		return
	}
	result, err := cc.codes.Improve(c.Request.Context(), actor, request)
	if err != nil {
		respondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (cc *CodeController) DetectErrors(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var request services.DetectInput
	if !bindJSON(c, &request) {
		return
	}
	report, err := cc.codes.DetectErrors(c.Request.Context(), actor, request)
	if err != nil {
		respondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (cc *CodeController) BatchGenerate(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var request services.BatchInput
	if !bindJSON(c, &request) {
		return
	}
	results, err := cc.codes.BatchGenerate(c.Request.Context(), actor, request)
	if err != nil {
		respondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

func (cc *CodeController) Save(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var request services.SaveCodeInput
	if !bindJSON(c, &request) {
		return
	}
	code, err := cc.codes.Save(c.Request.Context(), actor, request)
	if err != nil {
		respondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusCreated, code)
}

// History supports ?search=, ?model=, ?language= and ?sort=oldest.
func (cc *CodeController) History(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	codes := cc.codes.History(c.Request.Context(), actor.ID, services.HistoryQuery{
		Search:    c.Query("search"),
		Models:    listQuery(c, "model"),
		Languages: listQuery(c, "language"),
		Oldest:    c.Query("sort") == "oldest",
		Limit:     intQuery(c, "limit", 0),
	})
	c.JSON(http.StatusOK, gin.H{"codes": codes, "count": len(codes)})
}

func (cc *CodeController) Export(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", "csv")
	body, err := cc.codes.Export(c.Request.Context(), actor.ID, format)
	if err != nil {
		respondError(c, cc.log, err)
		return
	}
	contentType := "text/csv; charset=utf-8"
	if format == "txt" {
		contentType = "text/plain; charset=utf-8"
	}
	c.Header("Content-Disposition", `attachment; filename="codegalaxy_history.`+format+`"`)
	c.Data(http.StatusOK, contentType, []byte(body))
}

func (cc *CodeController) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := cc.codes.Delete(c.Request.Context(), actor.ID, id); err != nil {
		respondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Code deleted"})
}
