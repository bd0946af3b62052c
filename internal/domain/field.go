package domain

type Field int

// Column order of the ledger table.
const (
	FieldDate Field = iota
	FieldMiller
	FieldPlace
	FieldBrand
	FieldShop
	FieldDaysPending
	FieldDaysReceived
	FieldArea
	FieldBillNo
	FieldQty
	FieldRate
	FieldAmount
	FieldFreight
	FieldCommissionPct
	FieldCommission
	FieldTDS
	FieldShortage
	FieldSellerCommission
	FieldNetAmount
	FieldDifference
	FieldChequeAmount
	FieldChequeNo
	FieldPaymentDate
	FieldBank
	FieldStatus

	fieldCount
)

type FieldKind string

const (
	FieldKindText   FieldKind = "text"
	FieldKindNumber FieldKind = "number"
	FieldKindDate   FieldKind = "date"
	FieldKindSelect FieldKind = "select"
)

type fieldSpec struct {
	key          string
	label        string
	kind         FieldKind
	derived      bool
	autocomplete bool
	options      []string
}

var fieldSpecs = [fieldCount]fieldSpec{
	FieldDate:             {key: "date", label: "Date", kind: FieldKindDate},
	FieldMiller:           {key: "millerName", label: "Miller Name", kind: FieldKindText, autocomplete: true},
	FieldPlace:            {key: "place", label: "Place", kind: FieldKindText, autocomplete: true},
	FieldBrand:            {key: "brand", label: "Brand", kind: FieldKindText, autocomplete: true},
	FieldShop:             {key: "shopName", label: "Shop Name", kind: FieldKindText, autocomplete: true},
	FieldDaysPending:      {key: "noOfDays", label: "No of Days", kind: FieldKindText, derived: true},
	FieldDaysReceived:     {key: "noOfDayRec", label: "No of Day Rec", kind: FieldKindText, derived: true},
	FieldArea:             {key: "area", label: "Area", kind: FieldKindText, autocomplete: true},
	FieldBillNo:           {key: "billNo", label: "Bill No", kind: FieldKindText},
	FieldQty:              {key: "qty", label: "QTY", kind: FieldKindNumber},
	FieldRate:             {key: "rate", label: "Rate", kind: FieldKindNumber},
	FieldAmount:           {key: "amount", label: "Amount", kind: FieldKindNumber, derived: true},
	FieldFreight:          {key: "lr", label: "L.R.", kind: FieldKindNumber},
	FieldCommissionPct:    {key: "ccPct", label: "C.C.%", kind: FieldKindSelect, options: []string{"", "1%", "2%", "3%", "4%"}},
	FieldCommission:       {key: "cc", label: "C.C. Amt", kind: FieldKindNumber, derived: true},
	FieldTDS:              {key: "tds", label: "TDS", kind: FieldKindNumber},
	FieldShortage:         {key: "shortage", label: "Shortage", kind: FieldKindNumber},
	FieldSellerCommission: {key: "seller", label: "Seller Com", kind: FieldKindNumber},
	FieldNetAmount:        {key: "netAmt", label: "Net Amt", kind: FieldKindNumber, derived: true},
	FieldDifference:       {key: "diffIn", label: "Diff. in", kind: FieldKindNumber, derived: true},
	FieldChequeAmount:     {key: "chqAmt", label: "Chq Amt", kind: FieldKindNumber},
	FieldChequeNo:         {key: "chqNo", label: "Chq No.", kind: FieldKindText},
	FieldPaymentDate:      {key: "paymentDate", label: "Payment Date", kind: FieldKindDate},
	FieldBank:             {key: "bank", label: "Bank", kind: FieldKindText, autocomplete: true},
	FieldStatus:           {key: "status", label: "Status", kind: FieldKindText, derived: true},
}

var fieldsByKey = func() map[string]Field {
	m := make(map[string]Field, fieldCount)
	for f := range fieldCount {
		m[fieldSpecs[f].key] = f
	}
	return m
}()

// AllFields returns every field in column order.
func AllFields() []Field {
	out := make([]Field, fieldCount)
	for f := range fieldCount {
		out[f] = f
	}
	return out
}

// EditableFields returns the user-editable fields in column order.
func EditableFields() []Field {
	var out []Field
	for f := range fieldCount {
		if f.Editable() {
			out = append(out, f)
		}
	}
	return out
}

func ParseField(key string) (Field, error) {
	f, ok := fieldsByKey[key]
	if !ok {
		return 0, ErrUnknownField
	}
	return f, nil
}

func (f Field) IsValid() bool { return f >= 0 && f < fieldCount }

// Key is the storage and wire name of the field.
func (f Field) Key() string {
	if !f.IsValid() {
		return ""
	}
	return fieldSpecs[f].key
}

func (f Field) String() string { return f.Key() }

func (f Field) Label() string {
	if !f.IsValid() {
		return ""
	}
	return fieldSpecs[f].label
}

func (f Field) Kind() FieldKind {
	if !f.IsValid() {
		return ""
	}
	return fieldSpecs[f].kind
}

func (f Field) Derived() bool      { return f.IsValid() && fieldSpecs[f].derived }
func (f Field) Editable() bool     { return f.IsValid() && !fieldSpecs[f].derived }
func (f Field) Autocomplete() bool { return f.IsValid() && fieldSpecs[f].autocomplete }
func (f Field) Numeric() bool      { return f.Kind() == FieldKindNumber }

// Options lists the allowed values of a select field; nil otherwise.
func (f Field) Options() []string {
	if !f.IsValid() || fieldSpecs[f].options == nil {
		return nil
	}
	return append([]string(nil), fieldSpecs[f].options...)
}

// AllowsValue reports whether v is acceptable input for the field. Only
// select fields restrict their values.
func (f Field) AllowsValue(v string) bool {
	if f.Kind() != FieldKindSelect {
		return true
	}
	for _, o := range fieldSpecs[f].options {
		if o == v {
			return true
		}
	}
	return false
}
