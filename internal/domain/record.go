package domain

// Record is one ledger transaction. All values are stored as strings;
// numeric fields hold plain decimal strings.
type Record struct {
	ID    string `json:"id"`
	Draft bool   `json:"-"`

	Date             string `json:"date"`
	Miller           string `json:"millerName"`
	Place            string `json:"place"`
	Brand            string `json:"brand"`
	Shop             string `json:"shopName"`
	DaysPending      string `json:"noOfDays"`
	DaysReceived     string `json:"noOfDayRec"`
	Area             string `json:"area"`
	BillNo           string `json:"billNo"`
	Qty              string `json:"qty"`
	Rate             string `json:"rate"`
	Amount           string `json:"amount"`
	Freight          string `json:"lr"`
	CommissionPct    string `json:"ccPct"`
	Commission       string `json:"cc"`
	TDS              string `json:"tds"`
	Shortage         string `json:"shortage"`
	SellerCommission string `json:"seller"`
	NetAmount        string `json:"netAmt"`
	Difference       string `json:"diffIn"`
	ChequeAmount     string `json:"chqAmt"`
	ChequeNo         string `json:"chqNo"`
	PaymentDate      string `json:"paymentDate"`
	Bank             string `json:"bank"`
	Status           string `json:"status"`
}

const StatusCleared = "Cleared"

func (r *Record) slot(f Field) *string {
	switch f {
	case FieldDate:
		return &r.Date
	case FieldMiller:
		return &r.Miller
	case FieldPlace:
		return &r.Place
	case FieldBrand:
		return &r.Brand
	case FieldShop:
		return &r.Shop
	case FieldDaysPending:
		return &r.DaysPending
	case FieldDaysReceived:
		return &r.DaysReceived
	case FieldArea:
		return &r.Area
	case FieldBillNo:
		return &r.BillNo
	case FieldQty:
		return &r.Qty
	case FieldRate:
		return &r.Rate
	case FieldAmount:
		return &r.Amount
	case FieldFreight:
		return &r.Freight
	case FieldCommissionPct:
		return &r.CommissionPct
	case FieldCommission:
		return &r.Commission
	case FieldTDS:
		return &r.TDS
	case FieldShortage:
		return &r.Shortage
	case FieldSellerCommission:
		return &r.SellerCommission
	case FieldNetAmount:
		return &r.NetAmount
	case FieldDifference:
		return &r.Difference
	case FieldChequeAmount:
		return &r.ChequeAmount
	case FieldChequeNo:
		return &r.ChequeNo
	case FieldPaymentDate:
		return &r.PaymentDate
	case FieldBank:
		return &r.Bank
	case FieldStatus:
		return &r.Status
	}
	return nil
}

func (r Record) Get(f Field) string {
	if p := r.slot(f); p != nil {
		return *p
	}
	return ""
}

// Set assigns v to f. Unknown fields are ignored.
func (r *Record) Set(f Field, v string) {
	if p := r.slot(f); p != nil {
		*p = v
	}
}

// Fields returns the flat key/value mapping persisted for the record.
func (r Record) Fields() map[string]string {
	m := make(map[string]string, fieldCount)
	for f := range fieldCount {
		m[f.Key()] = r.Get(f)
	}
	return m
}

// RecordFromFields builds a record from a stored mapping. Unknown keys are
// dropped and missing keys stay blank.
func RecordFromFields(id string, m map[string]string) Record {
	r := Record{ID: id}
	for k, v := range m {
		if f, ok := fieldsByKey[k]; ok {
			r.Set(f, v)
		}
	}
	return r
}

func (r Record) Cleared() bool { return r.Status == StatusCleared }
