package audit

// program is the invariant set, written against the facts exported by Facts.
// Every violation/2 fact names a rule and the parameter it is about.
const program = `
Decl document(ID).
Decl active(ID).
Decl value(Namelist, Key, Text).
Decl int_value(Namelist, Key, N).
Decl shadow(Namelist, Key, Text).
Decl species(Label).
Decl atom_label(Label).
Decl count(Name, N).

Decl has_value(Namelist, Key).
Decl has_shadow(Namelist, Key).
Decl mirrored(Key).
Decl langevin_family(Text).
Decl violation(Rule, Subject).

has_value(NL, Key) :- value(NL, Key, _).
has_shadow(NL, Key) :- shadow(NL, Key, _).

mirrored("ngauss").
mirrored("degauss").
mirrored("emin").
mirrored("emax").
mirrored("deltae").

# Spin: one spelling of the spin choice, and an effective count in {1,2,4}.
violation(/spin_exclusive, "system.nspin") :-
    value("system", "nspin", _),
    value("system", "noncolin", _).

# Shadows only exist once the rules have run.
violation(/spin_effective, "system.!nspin") :-
    active(_),
    !has_shadow("system", "nspin").

violation(/spin_effective, "system.!nspin") :-
    shadow("system", "nspin", T),
    T != "1", T != "2", T != "4".

violation(/spin_effective, "system.!nspin") :-
    value("system", "noncolin", "true"),
    shadow("system", "nspin", T),
    T != "4".

violation(/spin_seed, "system.starting_magnetization(1)") :-
    shadow("system", "nspin", T),
    T != "1",
    !has_value("system", "starting_magnetization(1)").

violation(/spin_magnetization, "system.tot_magnetization") :-
    value("system", "noncolin", "true"),
    value("system", "tot_magnetization", _).

# Broadening: tetrahedron means neither field; anything else means both.
violation(/dos_tetrahedron, NL) :-
    shadow("dos", "ngauss", "-999"),
    has_value(NL, "degauss").

violation(/dos_tetrahedron, NL) :-
    shadow("dos", "ngauss", "-999"),
    has_value(NL, "ngauss").

violation(/dos_broadening, "dos.degauss") :-
    shadow("dos", "ngauss", T),
    T != "-999",
    !has_value("dos", "degauss").

violation(/dos_broadening, "dos.ngauss") :-
    shadow("dos", "ngauss", T),
    T != "-999",
    !has_value("dos", "ngauss").

violation(/dos_mirror, Key) :-
    mirrored(Key),
    value("dos", Key, A),
    value("projwfc", Key, B),
    A != B.

violation(/dos_mirror, Key) :-
    mirrored(Key),
    has_value("dos", Key),
    !has_value("projwfc", Key).

violation(/dos_mirror, Key) :-
    mirrored(Key),
    has_value("projwfc", Key),
    !has_value("dos", Key).

# Hubbard: U with non-colinear magnetism needs lda_plus_u_kind = 1.
violation(/hubbard_kind, "system.lda_plus_u_kind") :-
    value("system", "lda_plus_u", "true"),
    value("system", "noncolin", "true"),
    !value("system", "lda_plus_u_kind", "1").

# Integrators.
violation(/md_integrator, "ions.ion_dynamics") :-
    value("control", "calculation", "vc-md"),
    !value("ions", "ion_dynamics", "beeman").

violation(/md_integrator, "ions.ion_dynamics") :-
    value("control", "calculation", "md"),
    !has_value("ions", "ion_dynamics").

violation(/md_integrator, "ions.ion_dynamics") :-
    value("control", "calculation", "md"),
    value("ions", "ion_dynamics", D),
    D != "verlet",
    !langevin_family(D).

# Species inventory.
violation(/species_missing, L) :-
    atom_label(L),
    !species(L).

violation(/species_unused, L) :-
    species(L),
    !atom_label(L).

violation(/species_count, "system.ntyp") :-
    int_value("system", "ntyp", N),
    count(/labels, M),
    N != M.

violation(/species_count, "system.ntyp") :-
    count(/atoms, M),
    M != 0,
    !has_value("system", "ntyp").

violation(/atom_count, "system.nat") :-
    int_value("system", "nat", N),
    count(/atoms, M),
    N != M.

violation(/atom_count, "system.nat") :-
    count(/atoms, M),
    M != 0,
    !has_value("system", "nat").
`
