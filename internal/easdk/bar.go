package easdk

import (
	"github.com/HsiangNianian/easdk/internal/messenger"
	"github.com/HsiangNianian/easdk/internal/protocol"
)

// Bar controls the host's title bar.
type Bar struct {
	messenger *messenger.Messenger
}

func (b *Bar) StartLoading()  { b.messenger.Send(protocol.LoadingOn, nil) }
func (b *Bar) StopLoading()   { b.messenger.Send(protocol.LoadingOff, nil) }
func (b *Bar) CloseDropdown() { b.messenger.Send(protocol.CloseDropdown, nil) }
