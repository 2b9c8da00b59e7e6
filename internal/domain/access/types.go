package access

type AccessState string

const (
	// Beta wall is up and the user has not redeemed a code.
	AccessWaitlist AccessState = "waitlist"
	AccessFree     AccessState = "free"
	AccessPro      AccessState = "pro"
	// Paid plan with a failed renewal; pro features stay on until Stripe gives up.
	AccessGrace AccessState = "grace"
)

const (
	CapEdit        = "edit"
	CapExport      = "export"
	CapUpload      = "upload"
	CapGenerate    = "ai_generate"
	CapSuggestions = "ai_suggestions"
	CapSend        = "send_test"
	CapShare       = "share"
	CapBookmarks   = "bookmarks"
	CapNoBranding  = "remove_branding"
)
