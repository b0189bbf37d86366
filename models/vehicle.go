package models

// Canonical column names. A normalized table only ever carries these.
const (
	ColLocation          = "location"
	ColOrderNumber       = "order_number"
	ColModelYear         = "model_year"
	ColModelCode         = "model_code"
	ColTrim              = "trim"
	ColDrivetrain        = "drivetrain"
	ColPackage           = "package"
	ColExteriorColor     = "exterior_color"
	ColInterior          = "interior"
	ColFactoryOptionCode = "factory_option_code"
	ColVIN               = "vin"
	ColDealerName        = "dealer_name"
	ColDeliveryDate      = "delivery_date"
	ColETADate           = "eta_date"
	ColOrderDate         = "order_date"
	ColSoldDate          = "sold_date"
	ColCustomerName      = "customer_name"
	ColCustomerEmail     = "customer_email"
	ColStoreFile         = "store_file"
)

// CanonicalColumns is the full vocabulary in display order.
var CanonicalColumns = []string{
	ColLocation, ColOrderNumber, ColModelYear, ColModelCode, ColTrim, ColDrivetrain,
	ColPackage, ColExteriorColor, ColInterior, ColFactoryOptionCode, ColVIN, ColDealerName,
	ColDeliveryDate, ColETADate, ColOrderDate, ColSoldDate, ColCustomerName, ColCustomerEmail,
	ColStoreFile,
}

// Location values the reports filter on.
const (
	LocationRetailed  = "RETAILED"
	LocationDealerInv = "DLR INV"
)

// DateLayout is how normalized dates are rendered (MM-DD-YYYY).
const DateLayout = "01-02-2006"

// IsCanonicalColumn reports whether name belongs to the canonical vocabulary.
func IsCanonicalColumn(name string) bool {
	for _, c := range CanonicalColumns {
		if c == name {
			return true
		}
	}
	return false
}

// Vehicle is one canonical record in typed form. Dates stay in DateLayout
// text; an empty string means the date is absent.
type Vehicle struct {
	Location          string `csv:"location" json:"location"`
	OrderNumber       string `csv:"order_number" json:"order_number"`
	ModelYear         string `csv:"model_year" json:"model_year"`
	ModelCode         string `csv:"model_code" json:"model_code"`
	Trim              string `csv:"trim" json:"trim"`
	Drivetrain        string `csv:"drivetrain" json:"drivetrain"`
	Package           string `csv:"package" json:"package"`
	ExteriorColor     string `csv:"exterior_color" json:"exterior_color"`
	Interior          string `csv:"interior" json:"interior"`
	FactoryOptionCode string `csv:"factory_option_code" json:"factory_option_code"`
	VIN               string `csv:"vin" json:"vin"`
	DealerName        string `csv:"dealer_name" json:"dealer_name"`
	DeliveryDate      string `csv:"delivery_date" json:"delivery_date"`
	ETADate           string `csv:"eta_date" json:"eta_date"`
	OrderDate         string `csv:"order_date" json:"order_date"`
	SoldDate          string `csv:"sold_date" json:"sold_date"`
	CustomerName      string `csv:"customer_name" json:"customer_name"`
	CustomerEmail     string `csv:"customer_email" json:"customer_email"`
	StoreFile         string `csv:"store_file" json:"store_file"`
}

// VehicleFromRow reads a row into a Vehicle. Missing cells become "".
func VehicleFromRow(r Row) Vehicle {
	return Vehicle{
		Location:          r[ColLocation],
		OrderNumber:       r[ColOrderNumber],
		ModelYear:         r[ColModelYear],
		ModelCode:         r[ColModelCode],
		Trim:              r[ColTrim],
		Drivetrain:        r[ColDrivetrain],
		Package:           r[ColPackage],
		ExteriorColor:     r[ColExteriorColor],
		Interior:          r[ColInterior],
		FactoryOptionCode: r[ColFactoryOptionCode],
		VIN:               r[ColVIN],
		DealerName:        r[ColDealerName],
		DeliveryDate:      r[ColDeliveryDate],
		ETADate:           r[ColETADate],
		OrderDate:         r[ColOrderDate],
		SoldDate:          r[ColSoldDate],
		CustomerName:      r[ColCustomerName],
		CustomerEmail:     r[ColCustomerEmail],
		StoreFile:         r[ColStoreFile],
	}
}

// Row returns the Vehicle as a row restricted to the given columns.
func (v Vehicle) Row(columns []string) Row {
	all := Row{
		ColLocation:          v.Location,
		ColOrderNumber:       v.OrderNumber,
		ColModelYear:         v.ModelYear,
		ColModelCode:         v.ModelCode,
		ColTrim:              v.Trim,
		ColDrivetrain:        v.Drivetrain,
		ColPackage:           v.Package,
		ColExteriorColor:     v.ExteriorColor,
		ColInterior:          v.Interior,
		ColFactoryOptionCode: v.FactoryOptionCode,
		ColVIN:               v.VIN,
		ColDealerName:        v.DealerName,
		ColDeliveryDate:      v.DeliveryDate,
		ColETADate:           v.ETADate,
		ColOrderDate:         v.OrderDate,
		ColSoldDate:          v.SoldDate,
		ColCustomerName:      v.CustomerName,
		ColCustomerEmail:     v.CustomerEmail,
		ColStoreFile:         v.StoreFile,
	}
	out := make(Row, len(columns))
	for _, c := range columns {
		out[c] = all[c]
	}
	return out
}
