package easdk

import (
	"github.com/HsiangNianian/easdk/internal/messenger"
	"github.com/HsiangNianian/easdk/internal/protocol"
)

// ResourcePicker opens the host's product and collection pickers. Selections
// come back through the Modal's pending result.
type ResourcePicker struct {
	messenger *messenger.Messenger
	modal     *Modal
}

func (r *ResourcePicker) OpenProductPicker(cfg protocol.PickerConfig, onSelection OnClose) {
	r.modal.openPicker(protocol.ModalProductPicker, cfg, onSelection)
}

func (r *ResourcePicker) OpenCollectionPicker(cfg protocol.PickerConfig, onSelection OnClose) {
	r.modal.openPicker(protocol.ModalCollectionPicker, cfg, onSelection)
}
