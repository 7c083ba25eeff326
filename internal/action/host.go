package action

import "github.com/dshills/keyweave/internal/dom"

// Host exposes a page to scripts.
type Host struct {
	Page *dom.Page
}

func (h Host) Click(selector string) error {
	el, err := h.Page.Query(selector)
	if err != nil {
		return err
	}
	h.Page.Click(el)
	return nil
}

func (h Host) Fill(selector, value string) error {
	el, err := h.Page.Query(selector)
	if err != nil {
		return err
	}
	return h.Page.SetValue(el, value)
}

func (h Host) Scroll(direction string) error {
	return h.Page.Scroll(direction, false)
}

func (h Host) Keypress(k string) {
	h.Page.Keypress(k)
}

func (h Host) TypeText(text string) bool {
	return h.Page.TypeText(text)
}

func (h Host) Navigate(kind string) error {
	return h.Page.Navigate(kind)
}

func (h Host) Text(selector string) (string, error) {
	el, err := h.Page.Query(selector)
	if err != nil {
		return "", err
	}
	if el.IsTextField() {
		return el.Value(), nil
	}
	return el.Text(), nil
}

func (h Host) URL() string {
	return h.Page.URL()
}
