package dto

// RotateCaptchaResponse carries a rotate captcha challenge for the inquiry form
type RotateCaptchaResponse struct {
	ChallengeID       string `json:"challenge_id"`
	MasterImageBase64 string `json:"master_image_base64"`
	ThumbImageBase64  string `json:"thumb_image_base64"`
}
