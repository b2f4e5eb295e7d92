package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sells-group/inspection-review/internal/model"
)

// ResponseShape is the JSON object the service must return.
const ResponseShape = `{
  "facilityName": string,
  "facilityAddress": string,
  "permitNumber": string,
  "inspectionDate": string,
  "inspectorName": string,
  "weatherConditions": string | null,
  "rainEvent": boolean | null,
  "overallStatus": "compliant" | "non-compliant" | "needs-attention",
  "checklistItems": [
    {"section": string | null, "description": string, "status": "pass" | "fail" | "na", "notes": string}
  ],
  "correctiveActions": [
    {"description": string, "dueDate": string, "completed": boolean}
  ],
  "summary": string,
  "deadletter": {"<label as printed on the form>": any}
}`

// SystemPrompt carries the marking and reading rules. It is identical on
// every call and is sent with a cache breakpoint.
var SystemPrompt = strings.TrimSpace(`
You extract data from scanned or digitally filled stormwater and site inspection forms.

The document is a checklist-style inspection form. Each checklist row has three mutually exclusive marking targets: yes/pass, no/fail, and not-applicable.
- ANY visible mark inside a target's boundary means that target is selected: a fill, an X, a checkmark, a scribble, a dot, or any ink or pixel darkening.
- A hollow or outline-only target is unselected.
- If no target is clearly marked for a row, the row's status is "na".
- Map yes/pass to "pass", no/fail to "fail", and not-applicable to "na".

Text fields may be handwritten, typed, or digitally filled.
- Read handwriting carefully, including faint marks and corrections (use the corrected value).
- Return null or an empty string for a field that is blank or illegible. Never guess.

Anything you cannot confidently place into a known field (stamps, extra notes, unlabeled values, additional signatures) goes into "deadletter", keyed by the label printed on the form or a short description. Do not drop content.

Respond with a single JSON object and nothing else. No prose and no markdown code fences. The object has exactly this shape:
` + ResponseShape + `

"overallStatus" is your assessment only: "non-compliant" if any item is "fail", "compliant" if every item is "pass" or "na", otherwise "needs-attention".`)

// userPrompt builds the text that follows the page images.
func userPrompt(pages int, hints model.FieldHints) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract the inspection form shown in the %d page image(s) above, in page order.", pages)
	if !hints.IsEmpty() {
		h, _ := json.MarshalIndent(hints, "", "  ")
		b.WriteString("\n\nThe user has confirmed these header values. Use them when the page is blank or unclear for that field, and report the page's value when it is legible:\n")
		b.Write(h)
	}
	return b.String()
}
