package storage

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joblane/verification-service/internal/config"
	"github.com/joblane/verification-service/internal/utils"
)

// Upload is a decoded file handed to the document store.
type Upload struct {
	Data        []byte
	ContentType string
}

// DocumentStore persists uploaded verification files and returns
// addressable references. The workflow never touches raw storage URLs;
// it only holds fileRefs and resolves them for display.
type DocumentStore interface {
	Store(ctx context.Context, upload Upload, ref string) (string, error)
	Resolve(fileRef string) string
}

type cloudinaryStore struct {
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
	client    *http.Client
}

func NewCloudinaryStore(cfg *config.Config) DocumentStore {
	return &cloudinaryStore{
		cloudName: cfg.CloudinaryCloudName,
		apiKey:    cfg.CloudinaryAPIKey,
		apiSecret: cfg.CloudinaryAPISecret,
		folder:    cfg.CloudinaryFolder,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *cloudinaryStore) Store(ctx context.Context, upload Upload, ref string) (string, error) {
	publicID := ref
	if s.folder != "" {
		publicID = s.folder + "/" + ref
	}

	endpoint := "https://api.cloudinary.com/v1_1/" + s.cloudName + "/auto/upload"
	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	form := url.Values{}
	form.Add("file", "data:"+upload.ContentType+";base64,"+base64.StdEncoding.EncodeToString(upload.Data))
	form.Add("api_key", s.apiKey)
	form.Add("public_id", publicID)
	form.Add("timestamp", timestamp)

	// Cloudinary signed uploads require a SHA1 over the sorted params + secret.
	signatureString := fmt.Sprintf("public_id=%s&timestamp=%s%s", publicID, timestamp, s.apiSecret)
	form.Add("signature", fmt.Sprintf("%x", sha1.Sum([]byte(signatureString))))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: cloudinary upload failed: %v", utils.ErrExternalServiceFailure, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("%w: cloudinary upload returned status %d", utils.ErrExternalServiceFailure, res.StatusCode)
	}

	var body struct {
		PublicID  string `json:"public_id"`
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: cloudinary response decode failed: %v", utils.ErrExternalServiceFailure, err)
	}
	if body.PublicID == "" {
		return "", fmt.Errorf("%w: cloudinary response missing public_id", utils.ErrExternalServiceFailure)
	}
	return body.PublicID, nil
}

func (s *cloudinaryStore) Resolve(fileRef string) string {
	return "https://res.cloudinary.com/" + s.cloudName + "/image/upload/" + fileRef
}
