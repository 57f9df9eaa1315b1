package widgets

import (
	"fmt"
	"sort"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// ParameterPanel lists the parameters a result was produced with.
type ParameterPanel struct {
	container *fyne.Container
	form      *widget.Form
}

func NewParameterPanel() *ParameterPanel {
	panel := &ParameterPanel{
		form: widget.NewForm(),
	}
	panel.container = container.NewVBox(
		widget.NewLabel("Parameters:"),
		panel.form,
	)
	return panel
}

func (pp *ParameterPanel) UpdateParameters(params map[string]interface{}) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]*widget.FormItem, 0, len(names))
	for _, name := range names {
		items = append(items, widget.NewFormItem(name, widget.NewLabel(FormatValue(params[name]))))
	}

	pp.form.Items = items
	pp.form.Refresh()
}

func (pp *ParameterPanel) GetContainer() *fyne.Container {
	return pp.container
}

func (pp *ParameterPanel) Len() int {
	return len(pp.form.Items)
}

func FormatValue(value interface{}) string {
	switch v := value.(type) {
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case float64:
		return fmt.Sprintf("%g", v)
	case nil:
		return "-"
	default:
		return fmt.Sprintf("%v", v)
	}
}
