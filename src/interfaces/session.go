package interfaces

import "symbollist-observer/src/models"

// -----------------------------------------------------------------------------
// ISession is the pub/sub session the handler registers items with.
// Responses for a registered item are pushed onto the queue given at
// registration, tagged with the handle returned here.
// -----------------------------------------------------------------------------

type ISession interface {

	// -----------------------------------------------------------------------------

	// Register opens a new subscription and returns its handle.
	Register(queue chan<- models.MEvent, interest models.MInterestSpec) (models.SubscriptionHandle, error)

	// -----------------------------------------------------------------------------

	// Reissue re-sends the request on an existing subscription.
	Reissue(handle models.SubscriptionHandle, interest models.MInterestSpec) error

	// -----------------------------------------------------------------------------

	// Unregister closes one subscription.
	Unregister(handle models.SubscriptionHandle) error

	// -----------------------------------------------------------------------------

	// UnregisterAll closes every subscription opened through this session.
	UnregisterAll() error
}
