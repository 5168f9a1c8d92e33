package lammpstrj

import (
	"strconv"
	"strings"
)

// symbols are the chemical symbols indexed by atomic number.
var symbols = strings.Fields(`X
H He Li Be B C N O F Ne Na Mg Al Si P S Cl Ar K Ca Sc Ti V Cr Mn Fe Co Ni Cu
Zn Ga Ge As Se Br Kr Rb Sr Y Zr Nb Mo Tc Ru Rh Pd Ag Cd In Sn Sb Te I Xe Cs Ba
La Ce Pr Nd Pm Sm Eu Gd Tb Dy Ho Er Tm Yb Lu Hf Ta W Re Os Ir Pt Au Hg Tl Pb Bi
Po At Rn Fr Ra Ac Th Pa U Np Pu Am Cm Bk Cf Es Fm Md No Lr Rf Db Sg Bh Hs Mt Ds
Rg Cn Nh Fl Mc Lv Ts Og`)

// label returns the species of an atom of the given LAMMPS type. The types
// table has priority. Otherwise the type is taken as an atomic number; a type
// which isn't one is returned as is.
func label(typ string, types map[string]string) string {
	if sp, ok := types[typ]; ok {
		return sp
	}

	z, err := strconv.Atoi(typ)
	if err != nil || z <= 0 || z >= len(symbols) {
		return typ
	}
	return symbols[z]
}
