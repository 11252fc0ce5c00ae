package controller

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github/itish2003/ragchat/logger"
	"github/itish2003/ragchat/models"
	"github/itish2003/ragchat/services"
	"github/itish2003/ragchat/tools"
)

const maxUploadBytes = 32 << 20

var errUploadTooLarge = errors.New("upload exceeds size limit")

// DocumentIngester is the upload side of the ingest service.
type DocumentIngester interface {
	IngestFile(ctx context.Context, filename string, data []byte) (int, error)
	CountChunks(ctx context.Context) (int, error)
}

// ChatController handles the HTTP requests for the chat API.
type ChatController struct {
	chat      services.ChatService
	ingester  DocumentIngester
	retriever tools.Retriever
	topK      int
	log       logger.ILogger
}

func NewChatController(chat services.ChatService, ingester DocumentIngester, retriever tools.Retriever, topK int, log logger.ILogger) *ChatController {
	return &ChatController{
		chat:      chat,
		ingester:  ingester,
		retriever: retriever,
		topK:      topK,
		log:       log,
	}
}

// Chat is the handler for POST /chat/.
func (c *ChatController) Chat(ctx *gin.Context) {
	var req models.ChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	resp, err := c.chat.SubmitTurn(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrEmptyMessage) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate AI response"})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// Upload is the handler for POST /upload/. The original filename becomes the doc id.
func (c *ChatController) Upload(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, models.UploadResponse{Status: "error", Message: "No file uploaded."})
		return
	}
	filename := fileHeader.Filename

	if !services.IsSupportedFile(filename) {
		ctx.JSON(http.StatusBadRequest, models.UploadResponse{Status: "error", Message: "Unsupported file type."})
		return
	}

	data, err := readUpload(fileHeader.Open, maxUploadBytes)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			ctx.JSON(http.StatusRequestEntityTooLarge, models.UploadResponse{Status: "error", Message: "File too large."})
			return
		}
		c.uploadFailed(ctx, filename, err)
		return
	}

	chunks, err := c.ingester.IngestFile(ctx.Request.Context(), filename, data)
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedFileType) {
			ctx.JSON(http.StatusBadRequest, models.UploadResponse{Status: "error", Message: "Unsupported file type."})
			return
		}
		c.uploadFailed(ctx, filename, err)
		return
	}

	ctx.JSON(http.StatusOK, models.UploadResponse{
		Status:  "success",
		Message: filename + " uploaded and processed.",
		Chunks:  chunks,
	})
}

func (c *ChatController) uploadFailed(ctx *gin.Context, filename string, err error) {
	c.log.Error("UPLOAD", "Error processing file", map[string]interface{}{
		"filename": filename,
		"error":    err.Error(),
	})
	ctx.JSON(http.StatusInternalServerError, models.UploadResponse{Status: "error", Message: "Error processing file."})
}

// readUpload reads at most limit bytes and rejects anything longer rather
// than ingesting a truncated file.
func readUpload(open func() (multipart.File, error), limit int64) ([]byte, error) {
	f, err := open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errUploadTooLarge
	}
	return data, nil
}

// Health is the handler for GET /health.
func (c *ChatController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "RAG API",
		"version": "1.0.0",
	})
}

// DocumentCount is the handler for GET /api/v1/documents/count.
func (c *ChatController) DocumentCount(ctx *gin.Context) {
	count, err := c.ingester.CountChunks(ctx.Request.Context())
	if err != nil {
		c.log.Error("API", "Failed to count chunks", map[string]interface{}{"error": err.Error()})
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count documents"})
		return
	}
	ctx.JSON(http.StatusOK, models.DocumentCountResponse{Count: count})
}

// Search is the handler for POST /api/v1/search; it exposes the retrieval
// adapter directly, including the degradation flag.
func (c *ChatController) Search(ctx *gin.Context) {
	var req models.SearchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = c.topK
	}

	result, err := c.retriever.Search(ctx.Request.Context(), req.Query, topK)
	if err != nil {
		c.log.Error("API", "Search failed", map[string]interface{}{"error": err.Error()})
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "Search failed"})
		return
	}
	ctx.JSON(http.StatusOK, models.SearchResponse{
		Documents: result.Documents,
		Memory:    result.Memory,
		Degraded:  result.Degraded,
		Strategy:  result.Strategy,
	})
}
