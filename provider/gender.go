package provider

import "github.com/meysam81/go-bus/auth/oauth"

// genderFromNumber maps the 1 = male, 2 = female convention used by WeChat,
// Douyin and most Chinese platforms; anything else is unknown.
func genderFromNumber(code string) oauth.Gender {
	switch code {
	case "1":
		return oauth.GenderMale
	case "2":
		return oauth.GenderFemale
	default:
		return oauth.GenderUnknown
	}
}
