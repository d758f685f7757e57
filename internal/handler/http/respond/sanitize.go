package respond

import "regexp"

var (
	bearerPattern     = regexp.MustCompile(`(?i)bearer\s+[a-z0-9\-._~+/]+=*`)
	userinfoPattern   = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
	tokenParamPattern = regexp.MustCompile(`(?i)([?&](?:token|key|api_key|access_token)=)[^&\s"]+`)
)

// SanitizeError returns err's message with credentials masked: bearer
// tokens, URL passwords and token-like query parameters.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = bearerPattern.ReplaceAllString(msg, "Bearer ****")
	msg = userinfoPattern.ReplaceAllString(msg, "://$1:****@")
	msg = tokenParamPattern.ReplaceAllString(msg, "${1}****")
	return msg
}
