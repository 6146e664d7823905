package vehicle

// Model identifies a supported vehicle platform.
type Model string

const (
	GenesisG70      Model = "GENESIS_G70"
	GenesisG80      Model = "GENESIS_G80"
	GenesisEQ900    Model = "GENESIS_EQ900"
	GenesisEQ900L   Model = "GENESIS_EQ900_L"
	GenesisG90      Model = "GENESIS_G90"
	Genesis         Model = "GENESIS"
	SantaFe         Model = "SANTA_FE"
	Sonata          Model = "SONATA"
	SonataHEV       Model = "SONATA_HEV"
	Sonata19        Model = "SONATA19"
	Sonata19HEV     Model = "SONATA19_HEV"
	SonataLFTurbo   Model = "SONATA_LF_TURBO"
	Palisade        Model = "PALISADE"
	Elantra         Model = "ELANTRA"
	ElantraGTI30    Model = "ELANTRA_GT_I30"
	Elantra2021     Model = "ELANTRA_2021"
	ElantraHEV2021  Model = "ELANTRA_HEV_2021"
	Kona            Model = "KONA"
	KonaHEV         Model = "KONA_HEV"
	KonaEV          Model = "KONA_EV"
	Ioniq           Model = "IONIQ"
	IoniqEVLtd      Model = "IONIQ_EV_LTD"
	IoniqEV2020     Model = "IONIQ_EV_2020"
	IoniqPHEV       Model = "IONIQ_PHEV"
	GrandeurIG      Model = "GRANDEUR_IG"
	GrandeurIGHEV   Model = "GRANDEUR_IG_HEV"
	GrandeurIGFL    Model = "GRANDEUR_IG_FL"
	GrandeurIGFLHEV Model = "GRANDEUR_IG_FL_HEV"
	Veloster        Model = "VELOSTER"
	TucsonTLSCC     Model = "TUCSON_TL_SCC"
	Sorento         Model = "SORENTO"
	K5              Model = "K5"
	K5HEV           Model = "K5_HEV"
	Stinger         Model = "STINGER"
	Forte           Model = "FORTE"
	Ceed            Model = "CEED"
	Sportage        Model = "SPORTAGE"
	NiroHEV         Model = "NIRO_HEV"
	NiroEV          Model = "NIRO_EV"
	K7              Model = "K7"
	K7HEV           Model = "K7_HEV"
	Seltos          Model = "SELTOS"
	K9              Model = "K9"
)
