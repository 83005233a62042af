package protocol

// MessageType names a message in the catalog shared by both ends of the
// channel. Values are compared by string equality across the boundary.
type MessageType string

const (
	Initialize            MessageType = "Shopify.API.initialize"
	LoadingOn             MessageType = "Shopify.API.Bar.loading.on"
	LoadingOff            MessageType = "Shopify.API.Bar.loading.off"
	CloseDropdown         MessageType = "Shopify.API.Bar.closeDropdown"
	FlashNotice           MessageType = "Shopify.API.flash.notice"
	FlashError            MessageType = "Shopify.API.flash.error"
	ModalOpen             MessageType = "Shopify.API.Modal.open"
	ModalConfirm          MessageType = "Shopify.API.Modal.confirm"
	ModalAlert            MessageType = "Shopify.API.Modal.alert"
	ModalClose            MessageType = "Shopify.API.Modal.close"
	ModalCollectionPicker MessageType = "Shopify.API.Modal.collectionPicker"
	ModalProductPicker    MessageType = "Shopify.API.Modal.productPicker"
	PushState             MessageType = "Shopify.API.pushState"
	RedirectTo            MessageType = "Shopify.API.redirect"
	SetWindowLocation     MessageType = "Shopify.API.setWindowLocation"
)

var catalog = map[MessageType]struct{}{
	Initialize:            {},
	LoadingOn:             {},
	LoadingOff:            {},
	CloseDropdown:         {},
	FlashNotice:           {},
	FlashError:            {},
	ModalOpen:             {},
	ModalConfirm:          {},
	ModalAlert:            {},
	ModalClose:            {},
	ModalCollectionPicker: {},
	ModalProductPicker:    {},
	PushState:             {},
	RedirectTo:            {},
	SetWindowLocation:     {},
}

// Valid reports whether t is part of the catalog.
func (t MessageType) Valid() bool {
	_, ok := catalog[t]
	return ok
}

func (t MessageType) String() string {
	return string(t)
}

// IsDialog reports whether t opens a dialog that is answered by ModalClose.
func (t MessageType) IsDialog() bool {
	switch t {
	case ModalOpen, ModalConfirm, ModalAlert, ModalCollectionPicker, ModalProductPicker:
		return true
	}
	return false
}

// ParseMessageType converts a raw wire value into a MessageType.
func ParseMessageType(raw string) (MessageType, bool) {
	t := MessageType(raw)
	return t, t.Valid()
}

// MessageTypes returns every catalog entry.
func MessageTypes() []MessageType {
	return []MessageType{
		Initialize, LoadingOn, LoadingOff, CloseDropdown,
		FlashNotice, FlashError,
		ModalOpen, ModalConfirm, ModalAlert, ModalClose,
		ModalCollectionPicker, ModalProductPicker,
		PushState, RedirectTo, SetWindowLocation,
	}
}
