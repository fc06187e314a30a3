package kb

// Properties written or read by the synchronization jobs.
const (
	PropInstanceOf       PropertyID = "P31"
	PropCountry          PropertyID = "P17"
	PropStatedIn         PropertyID = "P248"
	PropDOI              PropertyID = "P356"
	PropEditionNumber    PropertyID = "P393"
	PropInception        PropertyID = "P571"
	PropPublicationDate  PropertyID = "P577"
	PropEditionOf        PropertyID = "P629"
	PropOf               PropertyID = "P642"
	PropDecaysTo         PropertyID = "P816"
	PropDecayMode        PropertyID = "P817"
	PropRetrieved        PropertyID = "P813"
	PropReferenceURL     PropertyID = "P854"
	PropOfficialWebsite  PropertyID = "P856"
	PropAtomicNumber     PropertyID = "P1086"
	PropProportion       PropertyID = "P1107"
	PropSpin             PropertyID = "P1122"
	PropParity           PropertyID = "P1123"
	PropNeutronNumber    PropertyID = "P1148"
	PropHalfLife         PropertyID = "P2114"
	PropAbundance        PropertyID = "P2374"
	PropGRID             PropertyID = "P2427"
	PropUncertaintyMeans PropertyID = "P2571"
	PropFullWorkURL      PropertyID = "P2699"
	PropROR              PropertyID = "P6782"
)

// Items referenced by the synchronization jobs.
const (
	ItemNuDat             EntityID = "Q21234191"
	ItemStandardDeviation EntityID = "Q159375"
	ItemDownload          EntityID = "Q7126717"
	ItemEdition           EntityID = "Q3331189"
	ItemIsotope           EntityID = "Q25276"
	ItemIsomer            EntityID = "Q846110"
	ItemPercent           EntityID = "Q11229"
)
