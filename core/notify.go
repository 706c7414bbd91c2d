package core

// PushService delivers push notifications to a device contact token.
// Delivery is best-effort: implementations run asynchronously and report
// failures to the logger only. A decision that has already been committed
// is never affected by a notification failure.
type PushService interface {
	Notify(contactToken, title, body string)
}
