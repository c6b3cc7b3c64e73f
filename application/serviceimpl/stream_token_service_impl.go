package serviceimpl

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"course-video-service/domain/services"
	"course-video-service/pkg/config"
	"course-video-service/pkg/metrics"
)

const streamTokenVersion = "v1"

// StreamTokenServiceImpl ออก signed token ที่ผูกกับ (videoId, userId, expiry)
// Format: base64url(v1|videoId|userId|issuedAt|expiresAt).base64url(hmac-sha256)
type StreamTokenServiceImpl struct {
	secretKey  []byte
	defaultTTL time.Duration
	maxTTL     time.Duration
	now        func() time.Time
}

// NewStreamTokenService สร้าง StreamTokenService instance
func NewStreamTokenService(cfg *config.StreamConfig) *StreamTokenServiceImpl {
	defaultTTL := cfg.TokenTTL
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Second
	}
	maxTTL := cfg.TokenMaxTTL
	if maxTTL < defaultTTL {
		maxTTL = defaultTTL
	}

	return &StreamTokenServiceImpl{
		secretKey:  []byte(cfg.TokenSecret),
		defaultTTL: defaultTTL,
		maxTTL:     maxTTL,
		now:        time.Now,
	}
}

// DefaultTTL อายุ token เมื่อ caller ไม่ระบุ
func (s *StreamTokenServiceImpl) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// GenerateStreamToken สร้าง token ใหม่ (ttl <= 0 ใช้ default, เกิน max ถูก clamp)
func (s *StreamTokenServiceImpl) GenerateStreamToken(videoID, userID uuid.UUID, ttl time.Duration) (*services.StreamToken, error) {
	if videoID == uuid.Nil || userID == uuid.Nil {
		return nil, errors.New("video id and user id are required")
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if ttl > s.maxTTL {
		ttl = s.maxTTL
	}

	issuedAt := s.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)

	data := strings.Join([]string{
		streamTokenVersion,
		videoID.String(),
		userID.String(),
		strconv.FormatInt(issuedAt.Unix(), 10),
		strconv.FormatInt(expiresAt.Unix(), 10),
	}, "|")

	payload := base64.RawURLEncoding.EncodeToString([]byte(data))
	token := fmt.Sprintf("%s.%s", payload, s.sign(data))

	metrics.StreamTokensIssuedTotal.Inc()

	return &services.StreamToken{
		Value:     token,
		VideoID:   videoID,
		UserID:    userID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateStreamToken ตรวจ token กับ videoId ที่ถูกขอ
func (s *StreamTokenServiceImpl) ValidateStreamToken(token string, videoID uuid.UUID) (*services.StreamTokenClaims, error) {
	claims, err := s.validate(token, videoID)
	if err != nil {
		metrics.RecordTokenRejection(rejectionReason(err))
		return nil, err
	}
	return claims, nil
}

func (s *StreamTokenServiceImpl) validate(token string, videoID uuid.UUID) (*services.StreamTokenClaims, error) {
	if token == "" {
		return nil, services.ErrTokenMalformed
	}

	// Parse token: payload.signature
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return nil, services.ErrTokenMalformed
	}

	payloadB64, providedSig := parts[0], parts[1]

	payload, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, services.ErrTokenMalformed
	}

	// Verify signature ก่อนอ่าน field ใดๆ
	expectedSig := s.sign(string(payload))
	if !hmac.Equal([]byte(providedSig), []byte(expectedSig)) {
		return nil, services.ErrTokenSignature
	}

	// Parse data: v1|videoId|userId|issuedAt|expiresAt
	fields := strings.Split(string(payload), "|")
	if len(fields) != 5 || fields[0] != streamTokenVersion {
		return nil, services.ErrTokenMalformed
	}

	tokenVideoID, err := uuid.Parse(fields[1])
	if err != nil {
		return nil, services.ErrTokenMalformed
	}
	userID, err := uuid.Parse(fields[2])
	if err != nil {
		return nil, services.ErrTokenMalformed
	}
	issuedAt, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, services.ErrTokenMalformed
	}
	expiry, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, services.ErrTokenMalformed
	}

	if tokenVideoID != videoID {
		return nil, services.ErrTokenVideoMismatch
	}

	if s.now().Unix() > expiry {
		return nil, services.ErrTokenExpired
	}

	return &services.StreamTokenClaims{
		VideoID:   tokenVideoID,
		UserID:    userID,
		IssuedAt:  time.Unix(issuedAt, 0),
		ExpiresAt: time.Unix(expiry, 0),
	}, nil
}

// sign creates HMAC-SHA256 signature
func (s *StreamTokenServiceImpl) sign(data string) string {
	h := hmac.New(sha256.New, s.secretKey)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, services.ErrTokenExpired):
		return "expired"
	case errors.Is(err, services.ErrTokenSignature):
		return "signature"
	case errors.Is(err, services.ErrTokenVideoMismatch):
		return "video_mismatch"
	default:
		return "malformed"
	}
}

var _ services.StreamTokenService = (*StreamTokenServiceImpl)(nil)
