package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andino/pulso/services/mock-server/internal/mock"
)

var store = mock.NewStore()

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	r := gin.Default()

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Relational store query surface
	rest := r.Group("/rest/v1")
	{
		rest.GET("/:table", handleSelect)
		rest.POST("/:table", handleInsert)
		rest.PATCH("/:table", handleUpdate)
		rest.DELETE("/:table", handleDelete)
	}

	// Gmail send endpoint
	r.POST("/gmail/v1/users/me/messages/send", handleGmailSend)

	addr := fmt.Sprintf(":%s", port)
	log.Printf("Starting Pulso mock store on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func handleSelect(c *gin.Context) {
	query := c.Request.URL.Query()
	conds := mock.ParseConditions(query)

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	rows, total := store.Select(c.Param("table"), conds, query.Get("select"), query.Get("order"), limit)
	if rows == nil {
		rows = []map[string]any{}
	}
	if strings.Contains(c.GetHeader("Prefer"), "count=exact") {
		c.Header("Content-Range", fmt.Sprintf("0-%d/%d", len(rows), total))
	}
	c.JSON(http.StatusOK, rows)
}

func handleInsert(c *gin.Context) {
	rows, err := decodeRows(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	table := c.Param("table")
	query := c.Request.URL.Query()
	prefer := c.GetHeader("Prefer")

	var created []map[string]any
	if conflict := query.Get("on_conflict"); conflict != "" || strings.Contains(prefer, "resolution=") {
		merge := strings.Contains(prefer, "resolution=merge-duplicates")
		created = store.Upsert(table, rows, splitColumns(conflict), merge)
	} else {
		created = store.Insert(table, rows)
	}

	if !strings.Contains(prefer, "return=representation") {
		c.Status(http.StatusCreated)
		return
	}
	if created == nil {
		created = []map[string]any{}
	}
	c.JSON(http.StatusCreated, created)
}

func handleUpdate(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conds := mock.ParseConditions(c.Request.URL.Query())
	updated := store.Update(c.Param("table"), patch, conds)

	if !strings.Contains(c.GetHeader("Prefer"), "return=representation") {
		c.Status(http.StatusNoContent)
		return
	}
	if updated == nil {
		updated = []map[string]any{}
	}
	c.JSON(http.StatusOK, updated)
}

func handleDelete(c *gin.Context) {
	conds := mock.ParseConditions(c.Request.URL.Query())
	store.Delete(c.Param("table"), conds)
	c.Status(http.StatusNoContent)
}

func handleGmailSend(c *gin.Context) {
	var req struct {
		Raw      string `json:"raw"`
		ThreadID string `json:"threadId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	messageID, threadID := store.NextMessageID()
	if req.ThreadID != "" {
		threadID = req.ThreadID
	}
	c.JSON(http.StatusOK, gin.H{"id": messageID, "threadId": threadID})
}

// decodeRows accepts both a single JSON object and an array of objects, the
// way the real store does.
func decodeRows(c *gin.Context) ([]map[string]any, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var rows []map[string]any
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	return []map[string]any{row}, nil
}

func splitColumns(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
