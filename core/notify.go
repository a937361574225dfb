package core

// Notifier delivers absence notices to a person's guardian.
type Notifier interface {
	// SendAbsenceNotification reports that personName did not show up on date (dd.MM.yyyy).
	// contact references the guardian (name and phone). A nil error means the notice was delivered.
	SendAbsenceNotification(personName, contact, date string) error
}
