package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/campus/pkg/db/pagination"
)

// respondEntity writes a success envelope keyed by the entity name.
func respondEntity(c *gin.Context, status int, key string, entity any) {
	c.JSON(status, gin.H{
		key:         entity,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// respondList writes a collection envelope with count and, when more rows
// exist, the opaque continuation token.
func respondList(c *gin.Context, key string, items any, count int, info *pagination.PageInfo) {
	body := gin.H{
		key:         items,
		"count":     count,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if info != nil && info.NextPageToken != "" {
		body["next_token"] = info.NextPageToken
	}
	c.JSON(200, body)
}
