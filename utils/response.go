package utils

import "github.com/gin-gonic/gin"

func JSON200(c *gin.Context, data interface{}) {
	c.JSON(200, gin.H{"status": 200, "data": data})
}

func JSON201(c *gin.Context, data interface{}) {
	c.JSON(201, gin.H{"status": 201, "data": data})
}

func JSON400(c *gin.Context, message interface{}) {
	c.JSON(400, gin.H{"status": 400, "error": message})
}

func JSON401(c *gin.Context, message interface{}) {
	c.JSON(401, gin.H{"status": 401, "error": message})
}

func JSON403(c *gin.Context, message interface{}) {
	c.JSON(403, gin.H{"status": 403, "error": message})
}

func JSON404(c *gin.Context, message interface{}) {
	c.JSON(404, gin.H{"status": 404, "error": message})
}

func JSON409(c *gin.Context, message interface{}) {
	c.JSON(409, gin.H{"status": 409, "error": message})
}

func JSON410(c *gin.Context, message interface{}) {
	c.JSON(410, gin.H{"status": 410, "error": message})
}

func JSON422(c *gin.Context, message interface{}) {
	c.JSON(422, gin.H{"status": 422, "error": message})
}

func JSON429(c *gin.Context, message interface{}) {
	c.JSON(429, gin.H{"status": 429, "error": message})
}

func JSON500(c *gin.Context, message interface{}) {
	c.JSON(500, gin.H{"status": 500, "error": message})
}

func JSON503(c *gin.Context, message interface{}) {
	c.JSON(503, gin.H{"status": 503, "error": message})
}
