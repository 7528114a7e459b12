package trip

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field sections used as dot-namespace prefixes in ledger and log payload keys.
const (
	SectionLoadingDetails = "loadingDetails"
	SectionDriverDetails  = "driverDetails"
	SectionImages         = "images"
)

// Sections lists every known namespace prefix.
var Sections = []string{SectionLoadingDetails, SectionDriverDetails, SectionImages}

// TripDetails holds the scalar trip metadata stored on the session row.
type TripDetails struct {
	TransporterName         string  `gorm:"column:transporter_name" json:"transporterName"`
	MaterialName            string  `gorm:"column:material_name" json:"materialName"`
	VehicleNumber           string  `gorm:"column:vehicle_number" json:"vehicleNumber"`
	GpsImeiNumber           string  `gorm:"column:gps_imei_number" json:"gpsImeiNumber"`
	DriverName              string  `gorm:"column:driver_name" json:"driverName"`
	DriverContactNumber     string  `gorm:"column:driver_contact_number" json:"driverContactNumber"`
	LoaderName              string  `gorm:"column:loader_name" json:"loaderName"`
	LoaderMobileNumber      string  `gorm:"column:loader_mobile_number" json:"loaderMobileNumber"`
	ChallanRoyaltyNumber    string  `gorm:"column:challan_royalty_number" json:"challanRoyaltyNumber"`
	DoNumber                string  `gorm:"column:do_number" json:"doNumber"`
	TpNumber                string  `gorm:"column:tp_number" json:"tpNumber"`
	Freight                 float64 `gorm:"column:freight" json:"freight"`
	QualityOfMaterials      string  `gorm:"column:quality_of_materials" json:"qualityOfMaterials"`
	GrossWeight             float64 `gorm:"column:gross_weight" json:"grossWeight"`
	TareWeight              float64 `gorm:"column:tare_weight" json:"tareWeight"`
	NetMaterialWeight       float64 `gorm:"column:net_material_weight" json:"netMaterialWeight"`
	LoadingSite             string  `gorm:"column:loading_site" json:"loadingSite"`
	ReceiverPartyName       string  `gorm:"column:receiver_party_name" json:"receiverPartyName"`
	CargoType               string  `gorm:"column:cargo_type" json:"cargoType"`
	NumberOfPackages        int     `gorm:"column:number_of_packages" json:"numberOfPackages"`
	DriverLicense           string  `gorm:"column:driver_license" json:"driverLicense"`
	RegistrationCertificate string  `gorm:"column:registration_certificate" json:"registrationCertificate"`
}

type FieldKind int

const (
	KindString FieldKind = iota
	KindFloat
	KindInt
	KindImage
	KindImageList
)

// FieldSpec describes one canonical trip field. Image fields have no column
// and are carried in activity log payloads only.
type FieldSpec struct {
	Name    string
	Section string
	Column  string
	Kind    FieldKind
	get     func(*TripDetails) string
	set     func(*TripDetails, string) error
	ptr     func(*TripDetails) *float64
}

// Key returns the dot-namespaced canonical name, e.g. loadingDetails.driverName.
func (f FieldSpec) Key() string { return f.Section + "." + f.Name }

func (f FieldSpec) IsImage() bool { return f.Kind == KindImage || f.Kind == KindImageList }

// Get returns the string-normalized value of the field, "" for image fields.
func (f FieldSpec) Get(d *TripDetails) string {
	if d == nil || f.get == nil {
		return ""
	}
	return f.get(d)
}

// Set parses raw into the field. Image fields are rejected.
func (f FieldSpec) Set(d *TripDetails, raw string) error {
	if f.set == nil {
		return fmt.Errorf("field %s is not a trip detail column", f.Key())
	}
	return f.set(d, strings.TrimSpace(raw))
}

func strField(name, section, column string, ptr func(*TripDetails) *string) FieldSpec {
	return FieldSpec{
		Name: name, Section: section, Column: column, Kind: KindString,
		get: func(d *TripDetails) string { return strings.TrimSpace(*ptr(d)) },
		set: func(d *TripDetails, v string) error { *ptr(d) = v; return nil },
	}
}

func floatField(name, column string, ptr func(*TripDetails) *float64) FieldSpec {
	return FieldSpec{
		Name: name, Section: SectionLoadingDetails, Column: column, Kind: KindFloat, ptr: ptr,
		get: func(d *TripDetails) string { return FormatFloat(*ptr(d)) },
		set: func(d *TripDetails, v string) error {
			if v == "" {
				*ptr(d) = 0
				return nil
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("%s must be a number", name)
			}
			if f < 0 {
				return fmt.Errorf("%s must not be negative", name)
			}
			*ptr(d) = f
			return nil
		},
	}
}

// Validate rejects numeric columns that cannot be stored and rendered as JSON.
// Values parsed through Set already satisfy it.
func (d *TripDetails) Validate() error {
	for _, f := range fieldSpecs {
		if f.Kind != KindFloat || f.ptr == nil {
			continue
		}
		v := *f.ptr(d)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a number", f.Name)
		}
		if v < 0 {
			return fmt.Errorf("%s must not be negative", f.Name)
		}
	}
	if d.NumberOfPackages < 0 {
		return fmt.Errorf("numberOfPackages must be a non-negative integer")
	}
	return nil
}

func imageField(name string, kind FieldKind) FieldSpec {
	return FieldSpec{Name: name, Section: SectionImages, Kind: kind}
}

// FormatFloat renders a float the way it is compared and logged: no trailing zeros, "" for zero.
func FormatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var fieldSpecs = []FieldSpec{
	strField("transporterName", SectionLoadingDetails, "transporter_name", func(d *TripDetails) *string { return &d.TransporterName }),
	strField("materialName", SectionLoadingDetails, "material_name", func(d *TripDetails) *string { return &d.MaterialName }),
	strField("vehicleNumber", SectionLoadingDetails, "vehicle_number", func(d *TripDetails) *string { return &d.VehicleNumber }),
	strField("gpsImeiNumber", SectionLoadingDetails, "gps_imei_number", func(d *TripDetails) *string { return &d.GpsImeiNumber }),
	strField("driverName", SectionLoadingDetails, "driver_name", func(d *TripDetails) *string { return &d.DriverName }),
	strField("driverContactNumber", SectionLoadingDetails, "driver_contact_number", func(d *TripDetails) *string { return &d.DriverContactNumber }),
	strField("loaderName", SectionLoadingDetails, "loader_name", func(d *TripDetails) *string { return &d.LoaderName }),
	strField("loaderMobileNumber", SectionLoadingDetails, "loader_mobile_number", func(d *TripDetails) *string { return &d.LoaderMobileNumber }),
	strField("challanRoyaltyNumber", SectionLoadingDetails, "challan_royalty_number", func(d *TripDetails) *string { return &d.ChallanRoyaltyNumber }),
	strField("doNumber", SectionLoadingDetails, "do_number", func(d *TripDetails) *string { return &d.DoNumber }),
	strField("tpNumber", SectionLoadingDetails, "tp_number", func(d *TripDetails) *string { return &d.TpNumber }),
	floatField("freight", "freight", func(d *TripDetails) *float64 { return &d.Freight }),
	strField("qualityOfMaterials", SectionLoadingDetails, "quality_of_materials", func(d *TripDetails) *string { return &d.QualityOfMaterials }),
	floatField("grossWeight", "gross_weight", func(d *TripDetails) *float64 { return &d.GrossWeight }),
	floatField("tareWeight", "tare_weight", func(d *TripDetails) *float64 { return &d.TareWeight }),
	floatField("netMaterialWeight", "net_material_weight", func(d *TripDetails) *float64 { return &d.NetMaterialWeight }),
	strField("loadingSite", SectionLoadingDetails, "loading_site", func(d *TripDetails) *string { return &d.LoadingSite }),
	strField("receiverPartyName", SectionLoadingDetails, "receiver_party_name", func(d *TripDetails) *string { return &d.ReceiverPartyName }),
	strField("cargoType", SectionLoadingDetails, "cargo_type", func(d *TripDetails) *string { return &d.CargoType }),
	{
		Name: "numberOfPackages", Section: SectionLoadingDetails, Column: "number_of_packages", Kind: KindInt,
		get: func(d *TripDetails) string {
			if d.NumberOfPackages == 0 {
				return ""
			}
			return strconv.Itoa(d.NumberOfPackages)
		},
		set: func(d *TripDetails, v string) error {
			if v == "" {
				d.NumberOfPackages = 0
				return nil
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("numberOfPackages must be a non-negative integer")
			}
			d.NumberOfPackages = n
			return nil
		},
	},
	strField("driverLicense", SectionDriverDetails, "driver_license", func(d *TripDetails) *string { return &d.DriverLicense }),
	strField("registrationCertificate", SectionDriverDetails, "registration_certificate", func(d *TripDetails) *string { return &d.RegistrationCertificate }),

	imageField("gpsImeiPicture", KindImage),
	imageField("vehicleNumberPlatePicture", KindImage),
	imageField("driverPicture", KindImage),
	imageField("sealingImages", KindImageList),
	imageField("vehicleImages", KindImageList),
	imageField("additionalImages", KindImageList),
}

var (
	specByKey  = map[string]FieldSpec{}
	specByName = map[string]FieldSpec{}
)

func init() {
	for _, f := range fieldSpecs {
		specByKey[f.Key()] = f
		specByName[f.Name] = f
	}
}

// FieldSpecs returns every canonical field in display order.
func FieldSpecs() []FieldSpec {
	out := make([]FieldSpec, len(fieldSpecs))
	copy(out, fieldSpecs)
	return out
}

// DetailFieldSpecs returns the column-backed trip detail fields.
func DetailFieldSpecs() []FieldSpec {
	out := make([]FieldSpec, 0, len(fieldSpecs))
	for _, f := range fieldSpecs {
		if !f.IsImage() {
			out = append(out, f)
		}
	}
	return out
}

// LookupField accepts a canonical key ("loadingDetails.driverName") or a bare
// field name ("driverName").
func LookupField(name string) (FieldSpec, bool) {
	name = strings.TrimSpace(name)
	if f, ok := specByKey[name]; ok {
		return f, true
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	f, ok := specByName[name]
	return f, ok
}

// CanonicalFieldName maps any accepted spelling to the canonical key. Unknown
// names are returned trimmed and unchanged.
func CanonicalFieldName(name string) string {
	if f, ok := LookupField(name); ok {
		return f.Key()
	}
	return strings.TrimSpace(name)
}

// Snapshot returns the string-normalized value of every column-backed field, keyed by canonical name.
func (d *TripDetails) Snapshot() map[string]string {
	out := make(map[string]string, len(fieldSpecs))
	for _, f := range fieldSpecs {
		if f.IsImage() {
			continue
		}
		out[f.Key()] = f.Get(d)
	}
	return out
}

// Payload renders the details in the nested log payload shape used by
// activity log tripDetails entries.
func (d *TripDetails) Payload() map[string]any {
	out := map[string]any{}
	for _, f := range fieldSpecs {
		if f.IsImage() {
			continue
		}
		section, _ := out[f.Section].(map[string]any)
		if section == nil {
			section = map[string]any{}
			out[f.Section] = section
		}
		section[f.Name] = f.Get(d)
	}
	return out
}
