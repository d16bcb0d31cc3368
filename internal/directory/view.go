package directory

// View is the members tab's search box and pager position. Changing the
// query always sends the view back to page 1.
type View struct {
	Query string `json:"query"`
	Page  int    `json:"page"`
}

func NewView() View {
	return View{Page: 1}
}

// WithQuery returns the view with query q. A different query resets the
// view to the first page.
func (v View) WithQuery(q string) View {
	if q == v.Query {
		return v
	}
	return View{Query: q, Page: 1}
}

// WithPage returns the view moved to page p (clamping happens when the
// view is rendered against data).
func (v View) WithPage(p int) View {
	v.Page = p
	return v
}
