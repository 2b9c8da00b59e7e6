package access

func CapabilitiesFor(state AccessState) []string {
	switch state {
	case AccessWaitlist:
		return []string{}
	case AccessFree:
		return []string{CapEdit, CapExport, CapUpload, CapGenerate, CapSend}
	default:
		return []string{
			CapEdit, CapExport, CapUpload, CapGenerate, CapSend,
			CapSuggestions, CapShare, CapBookmarks, CapNoBranding,
		}
	}
}

func Has(caps []string, c string) bool {
	for _, v := range caps {
		if v == c {
			return true
		}
	}
	return false
}
