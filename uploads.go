package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/sirupsen/logrus"
)

// objectStore is satisfied by config.GCSStore.
type objectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

const (
	maxUploadSizeBytes int64 = 5 * 1024 * 1024
	productImageMaxPx        = 1200
	thumbnailWidthPx         = 200
)

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

type productImageUpload struct {
	ImageURL           string `json:"image_url"`
	ThumbnailURL       string `json:"thumbnail_url"`
	ObjectKey          string `json:"object_key"`
	ThumbnailObjectKey string `json:"thumbnail_object_key"`
}

// uploadProductImageHandler takes a multipart "file" (jpeg or png, max 5MB),
// stores a resized copy and a thumbnail, and sets the product's image_url.
func (a *app) uploadProductImageHandler(c *gin.Context) {
	if a.images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}
	ctx := c.Request.Context()
	product, err := models.GetProduct(ctx, a.db, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSizeBytes+1024*1024)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required (max 5MB)"})
		return
	}
	file, err := header.Open()
	if err != nil {
		respondInternal(c, err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
	if err != nil {
		respondInternal(c, err)
		return
	}
	if int64(len(data)) > maxUploadSizeBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
		return
	}
	if !imageMimeTypes[http.DetectContentType(data)] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
		return
	}

	upload, err := storeProductImage(ctx, a.images, product.BarId, product.ID, data)
	if err != nil {
		respondError(c, err)
		return
	}
	product, err = models.SetProductImage(ctx, a.db, product.ID, upload.ImageURL)
	if err != nil {
		respondError(c, err)
		return
	}

	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	a.logger.WithFields(logrus.Fields{
		"bar_id":         product.BarId,
		"product_id":     product.ID,
		"size":           len(data),
		"object_key":     upload.ObjectKey,
		"correlation_id": cid,
	}).Info("[upload.complete]")

	c.JSON(http.StatusOK, gin.H{"data": upload, "product": product})
}

// storeProductImage re-encodes the image as JPEG at most productImageMaxPx on
// its long side, plus a thumbnailWidthPx wide thumbnail, and uploads both.
func storeProductImage(ctx context.Context, store objectStore, barId, productId string, data []byte) (*productImageUpload, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, utils.NewInputError("invalid image")
	}

	var full, thumb bytes.Buffer
	if err := imaging.Encode(&full, imaging.Fit(img, productImageMaxPx, productImageMaxPx, imaging.Lanczos), imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	if err := imaging.Encode(&thumb, imaging.Resize(img, thumbnailWidthPx, 0, imaging.Lanczos), imaging.JPEG); err != nil {
		return nil, err
	}

	key := path.Join(barId, "products", productId, uuid.NewString()+".jpg")
	thumbKey := thumbnailObjectKey(key)
	imageURL, err := store.Put(ctx, key, "image/jpeg", full.Bytes())
	if err != nil {
		return nil, err
	}
	thumbURL, err := store.Put(ctx, thumbKey, "image/jpeg", thumb.Bytes())
	if err != nil {
		return nil, err
	}
	return &productImageUpload{
		ImageURL:           imageURL,
		ThumbnailURL:       thumbURL,
		ObjectKey:          key,
		ThumbnailObjectKey: thumbKey,
	}, nil
}

func thumbnailObjectKey(objectKey string) string {
	return path.Join(path.Dir(objectKey), "thumbnails", path.Base(objectKey))
}
