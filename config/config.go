// shnews/config/config.go
package config

const (
	AppVersion = "1.2.0"

	// Form & Content Limits
	MaxNameLen    = 80
	MaxTitleLen   = 200
	MaxBodyLen    = 20000
	MaxCommentLen = 2000

	// File Upload Limits
	MaxUploadSize = 5 * 1024 * 1024 // 5MB
	ThumbWidth    = 320
	ThumbHeight   = 240

	// Content Defaults
	DefaultCategory = "family"
	DefaultAuthor   = "Site Admin"

	// Auth
	BcryptCost        = 10
	SessionMaxAgeDays = 30
	MinRating         = 0
	MaxRating         = 5

	// Login Rate Limiting Defaults
	DefaultRateLimitEvery  = "2s"
	DefaultRateLimitBurst  = 5
	DefaultRateLimitPrune  = "1h"
	DefaultRateLimitExpire = "24h"
)
