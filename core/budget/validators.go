package budget

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kymanga/ruzuku/core"
)

var (
	endDateTag  = "enddate"
	endDateText = "end date cannot be before start date"
)

func init() {
	core.Validate.RegisterStructValidation(dateRangeValidation, NewPool{}, UpdatePool{}, NewPeriod{}, UpdatePeriod{})
	core.RegisterCustomTranslation(core.Validate, core.Translator, endDateTag, endDateText)
}

// dateRangeValidation checks EndDate >= StartDate on all pool inputs.
func dateRangeValidation(sl validator.StructLevel) {
	var start, end time.Time
	switch v := sl.Current().Interface().(type) {
	case NewPool:
		start, end = v.StartDate, v.EndDate
	case UpdatePool:
		start, end = v.StartDate, v.EndDate
	case NewPeriod:
		start, end = v.StartDate, v.EndDate
	case UpdatePeriod:
		start, end = v.StartDate, v.EndDate
	}
	if start.IsZero() || end.IsZero() {
		return
	}
	if end.Before(start) {
		sl.ReportError(end, "end_date", "EndDate", endDateTag, "")
	}
}
