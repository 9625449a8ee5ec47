package domain

type (
	// AuthHookEmailPayload is the body Supabase posts to a Send Email auth hook.
	AuthHookEmailPayload struct {
		User      AuthHookUser      `json:"user"`
		EmailData AuthHookEmailData `json:"email_data"`
	}

	AuthHookUser struct {
		ID           string         `json:"id"`
		Email        string         `json:"email"`
		Phone        string         `json:"phone,omitempty"`
		UserMetadata map[string]any `json:"user_metadata,omitempty"`
	}

	AuthHookEmailData struct {
		Token           string `json:"token"`
		TokenHash       string `json:"token_hash"`
		RedirectTo      string `json:"redirect_to"`
		EmailActionType string `json:"email_action_type"`
		SiteURL         string `json:"site_url"`
		TokenNew        string `json:"token_new,omitempty"`
		TokenHashNew    string `json:"token_hash_new,omitempty"`
	}

	AuthHookError struct {
		HTTPCode int    `json:"http_code"`
		Message  string `json:"message"`
	}
)

var authEmailSubjects = map[string]string{
	"signup":           "Confirm your email",
	"invite":           "You have been invited",
	"magiclink":        "Your sign-in link",
	"recovery":         "Reset your password",
	"email_change":     "Confirm your new email",
	"reauthentication": "Confirm it is you",
}

// AuthEmailSubject returns the subject line of an auth email action.
func AuthEmailSubject(action string) string {
	if subject, ok := authEmailSubjects[action]; ok {
		return subject
	}

	return "Account notification"
}
