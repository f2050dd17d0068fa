package feed

// DefaultLibrary returns the starter feed library, dry-matter basis, with
// typical prices in $/kg DM.
func DefaultLibrary() []Ingredient {
	return []Ingredient{
		{Name: "corn_silage", Category: CategoryForage, PricePerKgDM: 0.08, NetEnergyLactation: 1.45, CrudeProteinPct: 8.5, NDFPct: 42.0, StarchPct: 30.0, FatPct: 3.5, MaxKgDM: UpTo(20.0)},
		{Name: "alfalfa_haylage", Category: CategoryForage, PricePerKgDM: 0.12, NetEnergyLactation: 1.55, CrudeProteinPct: 18.0, NDFPct: 38.0, StarchPct: 1.5, FatPct: 2.5, MaxKgDM: UpTo(8.0)},
		{Name: "dry_hay", Category: CategoryForage, PricePerKgDM: 0.10, NetEnergyLactation: 1.45, CrudeProteinPct: 16.0, NDFPct: 45.0, StarchPct: 1.0, FatPct: 2.5, MaxKgDM: Unbounded()},
		{Name: "ground_corn", Category: CategoryConcentrate, PricePerKgDM: 0.20, NetEnergyLactation: 2.20, CrudeProteinPct: 8.5, NDFPct: 9.0, StarchPct: 72.0, FatPct: 4.0, MaxKgDM: UpTo(8.0)},
		{Name: "sbm48", Category: CategoryConcentrate, PricePerKgDM: 0.35, NetEnergyLactation: 1.80, CrudeProteinPct: 48.0, NDFPct: 7.0, StarchPct: 1.0, FatPct: 1.0, MaxKgDM: UpTo(4.0)},
		{Name: "ddgs", Category: CategoryByproduct, PricePerKgDM: 0.18, NetEnergyLactation: 2.05, CrudeProteinPct: 30.0, NDFPct: 32.0, StarchPct: 2.0, FatPct: 10.0, MaxKgDM: UpTo(4.0)},
		{Name: "whole_cottonseed", Category: CategoryByproduct, PricePerKgDM: 0.22, NetEnergyLactation: 2.05, CrudeProteinPct: 23.0, NDFPct: 35.0, StarchPct: 0.0, FatPct: 18.0, MaxKgDM: UpTo(3.0)},
		{Name: "rumen_protected_fat", Category: CategorySupplement, PricePerKgDM: 1.20, NetEnergyLactation: 6.5, CrudeProteinPct: 0.0, NDFPct: 0.0, StarchPct: 0.0, FatPct: 98.0, MaxKgDM: UpTo(0.8)},
	}
}
