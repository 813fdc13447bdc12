// Package activation routes OS launch and activation events to handlers.
//
// Handlers are consulted most recently registered first. The first handler
// whose CanHandle returns true owns the event and no later handler sees it.
// A handler typically unregisters itself from inside Handle to guarantee it
// runs at most once.
//
// A CanHandle error is logged and treated as a refusal so one faulty handler
// cannot block the chain. A handler whose CanHandle keeps failing is
// quarantined: it is skipped until its cool-down passes, then given one trial call.
// Handle errors are returned to the caller.
package activation
