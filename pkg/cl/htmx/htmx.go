// Package htmx sets the response headers HTMX reads to drive the admin UI.
package htmx

import (
	"encoding/json"
	"net/http"
)

const (
	HeaderRequest            = "HX-Request"
	HeaderRedirect           = "HX-Redirect"
	HeaderRetarget           = "HX-Retarget"
	HeaderReswap             = "HX-Reswap"
	HeaderTrigger            = "HX-Trigger"
	HeaderTriggerAfterSwap   = "HX-Trigger-After-Swap"
	HeaderTriggerAfterSettle = "HX-Trigger-After-Settle"
)

// Event names understood by tekir-admin.js.
const (
	EventShowModal         = "showModal"
	EventDeleteCheckedRows = "deleteCheckedRows"
	EventUpdateAttr        = "updateAttr"
)

// IsRequest reports whether r was issued by HTMX.
func IsRequest(r *http.Request) bool {
	return r.Header.Get(HeaderRequest) == "true"
}

// Trigger sets header to a JSON object firing event with detail.
func Trigger(w http.ResponseWriter, header, event string, detail any) {
	data, err := json.Marshal(map[string]any{event: detail})
	if err != nil {
		return
	}
	w.Header().Set(header, string(data))
}

// ShowModal asks the client to open the dialog matching selector after the swap.
func ShowModal(w http.ResponseWriter, selector string) {
	Trigger(w, HeaderTriggerAfterSwap, EventShowModal, map[string]string{"modal": selector})
}

// Retarget swaps the response into target using the given swap style.
func Retarget(w http.ResponseWriter, target, swap string) {
	w.Header().Set(HeaderRetarget, target)
	w.Header().Set(HeaderReswap, swap)
}

// Redirect makes the client navigate to url.
func Redirect(w http.ResponseWriter, url string) {
	w.Header().Set(HeaderRedirect, url)
}
