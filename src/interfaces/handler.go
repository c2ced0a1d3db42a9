package interfaces

import "symbollist-observer/src/models"

// -----------------------------------------------------------------------------
// ISymbolListController is the control surface of the symbol list handler
// used by the HTTP and gRPC front ends and the scheduler.
// -----------------------------------------------------------------------------

type ISymbolListController interface {
	SendRequest(itemName string) error
	CloseRequest(itemName string)
	CloseAllRequest()
	IsRefreshComplete() bool
	IsItemRefreshComplete(itemName string) bool
	GetSymbolList() []string
	GetItemSymbolList(itemName string) []string
	GetWatchList() map[models.SubscriptionHandle]models.ItemIdentity
	WatchedItems() []string
	ItemStatuses() []models.MItemStatus
	ServiceName() string
}
