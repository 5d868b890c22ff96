package ads

import "github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"

// StatusAdvice is the note attached to a campaign status that needs attention
type StatusAdvice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	AdviceSuspended         = "ads_suspended"
	AdviceReactivate        = "ads_paused"
	AdviceGrowthOpportunity = "ads_idle"
)

// AdviseStatus returns nil for statuses that need no note
func AdviseStatus(status models.AdsStatus) *StatusAdvice {
	switch status {
	case models.AdsStatusHold:
		return &StatusAdvice{
			Code:    AdviceSuspended,
			Message: "Ads suspended: the listing is paused or out of stock. Restock or reactivate the listing to resume the campaign.",
		}
	case models.AdsStatusPaused:
		return &StatusAdvice{
			Code:    AdviceReactivate,
			Message: "Ads are paused. Consider reactivating the campaign to recover paid visibility.",
		}
	case models.AdsStatusIdle:
		return &StatusAdvice{
			Code:    AdviceGrowthOpportunity,
			Message: "Listing is not advertised. Product ads could grow its visits and sales.",
		}
	default:
		return nil
	}
}
