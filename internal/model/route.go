package model

import "net/url"

// Style is how the calendar renders events of one source.
type Style struct {
	ColorClass string `json:"colorClass"`
	Icon       string `json:"icon"`
}

var defaultStyle = Style{ColorClass: "bg-gray-100 text-gray-800 border-gray-300", Icon: "calendar"}

var styles = map[Source]Style{
	SourceMeal:        {ColorClass: "bg-green-100 text-green-800 border-green-300", Icon: "utensils"},
	SourcePlannedMeal: {ColorClass: "bg-emerald-100 text-emerald-800 border-emerald-300", Icon: "chef-hat"},
	SourceWorkout:     {ColorClass: "bg-blue-100 text-blue-800 border-blue-300", Icon: "dumbbell"},
	SourceCardio:      {ColorClass: "bg-red-100 text-red-800 border-red-300", Icon: "heart-pulse"},
	SourceSport:       {ColorClass: "bg-orange-100 text-orange-800 border-orange-300", Icon: "trophy"},
	SourceStretching:  {ColorClass: "bg-purple-100 text-purple-800 border-purple-300", Icon: "stretch-horizontal"},
	SourceExpense:     {ColorClass: "bg-yellow-100 text-yellow-800 border-yellow-300", Icon: "wallet"},
	SourceNote:        {ColorClass: "bg-slate-100 text-slate-800 border-slate-300", Icon: "sticky-note"},
}

// EventStyle returns the color class and icon for a source. Unknown sources
// get the default style.
func EventStyle(s Source) Style {
	if st, ok := styles[s]; ok {
		return st
	}
	return defaultStyle
}

// EventRoute returns the UI path that opens the source entity of an event.
// Unknown sources route to "/".
func EventRoute(s Source, sourceID string) string {
	id := url.PathEscape(sourceID)
	switch s {
	case SourceMeal:
		return "/food/meals/" + id
	case SourcePlannedMeal:
		return "/food/planner?meal=" + url.QueryEscape(sourceID)
	case SourceWorkout:
		return "/fitness/workouts/" + id
	case SourceCardio:
		return "/fitness/cardio/" + id
	case SourceSport:
		return "/fitness/sports/" + id
	case SourceStretching:
		return "/fitness/stretching/" + id
	case SourceExpense:
		return "/finance/expenses/" + id
	case SourceNote:
		return "/calendar?event=" + url.QueryEscape(sourceID)
	default:
		return "/"
	}
}

// Route returns the UI path for the event: its source entity's page, or the
// calendar itself for notes and events without a source id.
func (e *CalendarEvent) Route() string {
	if e.Source == SourceNote || e.SourceID == "" {
		return EventRoute(SourceNote, e.ID)
	}
	return EventRoute(e.Source, e.SourceID)
}
