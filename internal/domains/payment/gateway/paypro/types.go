package paypro

// Wire types for the PayPro checkout API (version 2). Amounts travel in
// minor units of the currency.

type checkoutRequest struct {
	Checkout checkoutBody `json:"checkout"`
}

type checkoutBody struct {
	Test            bool             `json:"test"`
	TransactionType string           `json:"transaction_type"`
	Order           orderBody        `json:"order"`
	Settings        settingsBody     `json:"settings"`
	Customer        *customerBody    `json:"customer,omitempty"`
}

type orderBody struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	TrackingID  string `json:"tracking_id"`
}

type settingsBody struct {
	SuccessURL      string `json:"success_url"`
	DeclineURL      string `json:"decline_url"`
	FailURL         string `json:"fail_url"`
	CancelURL       string `json:"cancel_url"`
	NotificationURL string `json:"notification_url,omitempty"`
	Language        string `json:"language"`
}

type customerBody struct {
	Email string `json:"email,omitempty"`
}

type checkoutResponse struct {
	Checkout struct {
		Token       string `json:"token"`
		RedirectURL string `json:"redirect_url"`
	} `json:"checkout"`
	Errors  map[string]interface{} `json:"errors,omitempty"`
	Message string                 `json:"message,omitempty"`
}

type checkoutStatusResponse struct {
	Checkout struct {
		Token      string `json:"token"`
		Status     string `json:"status"`
		Order      struct {
			TrackingID string `json:"tracking_id"`
		} `json:"order"`
	} `json:"checkout"`
	Errors  map[string]interface{} `json:"errors,omitempty"`
	Message string                 `json:"message,omitempty"`
}
