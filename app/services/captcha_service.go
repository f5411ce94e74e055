package services

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"
	"time"

	"github.com/amirphl/inox-pricing/utils"
	"github.com/google/uuid"
	"github.com/wenlng/go-captcha/v2/rotate"
)

// CaptchaService protects the public inquiry form with a rotate captcha.
// A challenge is single use: verification consumes it whatever the outcome.
type CaptchaService interface {
	GenerateRotate(ctx context.Context) (*RotateChallenge, error)
	VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool
}

type RotateChallenge struct {
	ID                string
	MasterImageBase64 string
	ThumbImageBase64  string
}

type captchaServiceImpl struct {
	rotator rotate.Captcha
	store   *utils.TTLCache[string, int]
	ttl     time.Duration
	padding int
}

// NewCaptchaServiceRotate constructs a CaptchaService using rotate mode.
// padding is the accepted angle difference in degrees.
func NewCaptchaServiceRotate(ttl time.Duration, padding int, imgSizePx int) (CaptchaService, error) {
	if imgSizePx <= 0 {
		imgSizePx = 220
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	builder := rotate.NewBuilder(
		rotate.WithImageSquareSize(imgSizePx),
	)
	builder.SetResources(
		rotate.WithImages(generateRotateBackgrounds(3, imgSizePx)),
	)

	return &captchaServiceImpl{
		rotator: builder.Make(),
		store:   utils.NewTTLCache[string, int](),
		ttl:     ttl,
		padding: padding,
	}, nil
}

func (s *captchaServiceImpl) GenerateRotate(ctx context.Context) (*RotateChallenge, error) {
	captData, err := s.rotator.Generate()
	if err != nil {
		return nil, err
	}

	block := captData.GetData()
	if block == nil {
		return nil, errors.New("captcha generator returned no block")
	}

	masterB64, err := captData.GetMasterImage().ToBase64()
	if err != nil {
		return nil, err
	}
	thumbB64, err := captData.GetThumbImage().ToBase64()
	if err != nil {
		return nil, err
	}

	challengeID := uuid.New().String()
	s.store.Set(challengeID, block.Angle, s.ttl)

	return &RotateChallenge{
		ID:                challengeID,
		MasterImageBase64: masterB64,
		ThumbImageBase64:  thumbB64,
	}, nil
}

func (s *captchaServiceImpl) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	target, ok := s.store.Get(challengeID)
	if !ok {
		return false
	}
	s.store.Delete(challengeID)

	if math.IsNaN(userAngle) || math.IsInf(userAngle, 0) {
		return false
	}
	return rotate.Validate(int(math.Round(userAngle)), target, s.padding)
}

// RunCleanup drops expired challenges until ctx is done
func (s *captchaServiceImpl) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.store.Sweep()
		}
	}
}

// CleanupRunner is implemented by captcha services that keep challenges in memory
type CleanupRunner interface {
	RunCleanup(ctx context.Context, interval time.Duration)
}

func generateRotateBackgrounds(n int, size int) []image.Image {
	if n <= 0 {
		n = 1
	}
	imgs := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		imgs = append(imgs, newBrushedSteelImage(size, size, i))
	}
	return imgs
}

// newBrushedSteelImage draws a grey radial gradient with horizontal grain
func newBrushedSteelImage(w, h, seed int) image.Image {
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	rng := rand.New(rand.NewSource(int64(seed) + time.Now().UnixNano()))
	for y := 0; y < h; y++ {
		grain := uint8(rng.Intn(24))
		for x := 0; x < w; x++ {
			dx := float64(x - w/2)
			dy := float64(y - h/2)
			t := math.Min(1, math.Sqrt(dx*dx+dy*dy)/float64(w/2))
			base := uint8(210 - int(110*t))
			g := base - grain/2
			rgba.Set(x, y, color.RGBA{R: g, G: g + 4, B: g + 10, A: 255})
		}
	}
	drawRect(rgba, w/8, h/6, w/2, h/14, color.RGBA{R: 255, G: 255, B: 255, A: 40})
	drawRect(rgba, w/3, 2*h/3, w/2, h/12, color.RGBA{R: 20, G: 30, B: 40, A: 32})
	return rgba
}

func drawRect(dst *image.RGBA, x, y, w, h int, c color.RGBA) {
	draw.Draw(dst, image.Rect(x, y, x+w, y+h), &image.Uniform{C: c}, image.Point{}, draw.Over)
}
