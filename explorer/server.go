package explorer

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zeu5/snake-rl/types"
)

// Router serves the memory over HTTP:
//
//	GET /states         keys of every known state
//	GET /states/:state  decoded state with its weights
func (e *Explorer) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/states", e.handleStates)
	router.GET("/states/:state", e.handleState)
	return router
}

func (e *Explorer) handleStates(c *gin.Context) {
	states, err := e.States(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	keys := make([]string, len(states))
	for i, s := range states {
		keys[i] = s.Key()
	}
	c.JSON(http.StatusOK, gin.H{"count": len(keys), "states": keys})
}

func (e *Explorer) handleState(c *gin.Context) {
	state, err := types.ParseState(c.Param("state"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := e.View(c.Request.Context(), state)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !view.Known {
		c.JSON(http.StatusNotFound, view)
		return
	}
	c.JSON(http.StatusOK, view)
}
