// Package store persists intake submissions. Insert assigns identity and
// creation time; records are never updated in place.
package store

// ListLimit is the most records the admin list returns.
const ListLimit = 200

const selectColumns = `
	id, created_at, full_name, email, phone_number, company_name, role_position,
	services, selected_package, needs_and_goals, office_duration, team_size,
	event_type, expected_attendees, preferred_date, currently_using_tools, main_challenge,
	referral_source, other_referral_source, preferred_contact, best_time_to_reach,
	best_time_from, best_time_to`
