package gateway

// Evolution API webhook envelope. Only the fields the gateway reads are
// modeled; the provider sends far more.

type webhookPayload struct {
	Event    string     `json:"event"`
	Instance string     `json:"instance"`
	Data     *eventData `json:"data"`
}

type eventData struct {
	State    string          `json:"state"`
	Status   string          `json:"status"`
	Instance *instanceStatus `json:"instance"`
	Key      *messageKey     `json:"key"`
	PushName string          `json:"pushName"`
	Message  *messageContent `json:"message"`
}

type instanceStatus struct {
	Status string `json:"status"`
}

type messageKey struct {
	ID        string `json:"id"`
	FromMe    bool   `json:"fromMe"`
	RemoteJid string `json:"remoteJid"`
}

type messageContent struct {
	Conversation        string           `json:"conversation"`
	ExtendedTextMessage *extendedText    `json:"extendedTextMessage"`
	AudioMessage        *struct{}        `json:"audioMessage"`
	ImageMessage        *struct{}        `json:"imageMessage"`
	DocumentMessage     *documentMessage `json:"documentMessage"`
}

type extendedText struct {
	Text string `json:"text"`
}

type documentMessage struct {
	Mimetype string `json:"mimetype"`
	FileName string `json:"fileName"`
}

// connectionState picks the provider's state field, which moves around
// between event types.
func (p *webhookPayload) connectionState() string {
	if p.Data == nil {
		return ""
	}
	if p.Data.State != "" {
		return p.Data.State
	}
	if p.Data.Status != "" {
		return p.Data.Status
	}
	if p.Event == "instance.update" && p.Data.Instance != nil {
		return p.Data.Instance.Status
	}
	return ""
}
