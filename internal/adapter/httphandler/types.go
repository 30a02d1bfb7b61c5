package httphandler

import "github.com/dmikhr/catalog-imagery/internal/core/domain"

type (
	RemoveRequest struct {
		Provider string `json:"provider"`
	}

	RemoveResponse struct {
		Success          bool   `json:"success"`
		ImageID          int64  `json:"imageId,omitempty"`
		ProcessedLocator string `json:"processedLocator"`
		ProviderUsed     string `json:"providerUsed"`
	}

	ErrorResponse struct {
		Error  string `json:"error"`
		Detail string `json:"detail,omitempty"`
	}
)

type (
	BatchRemoveItem struct {
		ImageID  string `json:"imageId"`
		Provider string `json:"provider"`
	}

	BatchRemoveRequest struct {
		Items []BatchRemoveItem `json:"items"`
	}

	BatchRemoveResult struct {
		ImageID          string `json:"imageId"`
		Success          bool   `json:"success"`
		ProcessedLocator string `json:"processedLocator,omitempty"`
		ProviderUsed     string `json:"providerUsed,omitempty"`
		Error            string `json:"error,omitempty"`
	}

	BatchRemoveResponse struct {
		Results []BatchRemoveResult `json:"results"`
	}
)

type (
	ImageView struct {
		ID               int64  `json:"id,omitempty"`
		OriginalLocator  string `json:"originalLocator"`
		ProcessedLocator string `json:"processedLocator,omitempty"`
		Status           string `json:"status"`
		Source           string `json:"source"`
	}

	ImagesResponse struct {
		Images []ImageView `json:"images"`
	}

	RegisterImageRequest struct {
		OriginalLocator string `json:"originalLocator"`
	}

	ImageRecord struct {
		ID               int64  `json:"id"`
		ProductID        int64  `json:"productId"`
		OriginalLocator  string `json:"originalLocator"`
		ProcessedLocator string `json:"processedLocator,omitempty"`
		Status           string `json:"status"`
	}
)

func toImageView(v domain.ImageView) ImageView {
	return ImageView{
		ID:               v.ID,
		OriginalLocator:  v.OriginalLocator,
		ProcessedLocator: v.ProcessedLocator,
		Status:           string(v.Status),
		Source:           string(v.Source),
	}
}

func toImageRecord(rec domain.ImageRecord) ImageRecord {
	return ImageRecord{
		ID:               rec.ID,
		ProductID:        rec.ProductID,
		OriginalLocator:  rec.OriginalLocator,
		ProcessedLocator: rec.ProcessedLocator,
		Status:           string(rec.Status),
	}
}
