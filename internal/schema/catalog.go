package schema

import "fmt"

func col(name string, t Type) Column {
	return Column{Name: name, Type: t}
}

func cols(t Type, names ...string) []Column {
	out := make([]Column, len(names))
	for i, n := range names {
		out[i] = col(n, t)
	}
	return out
}

func join(parts ...[]Column) []Column {
	var out []Column
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func key(name string) []Column {
	return []Column{{Name: name, Type: BigInt, NotNull: true}}
}

func varchar(name string, width int) []Column {
	return []Column{{Name: name, Type: Varchar, Width: width}}
}

// Loans is the loan subject area.
var Loans = Dataset{
	Name:   "loans",
	Path:   "loans",
	Format: Parquet,
	Columns: join(
		key("loan_id"),
		[]Column{col("borrower_id", BigInt), col("issue_d", Date), col("term", Int)},
		cols(Float, "loan_amnt", "funded_amnt", "funded_amnt_inv", "int_rate", "installment"),
		cols(Varchar, "grade", "sub_grade", "initial_list_status", "application_type",
			"verification_status", "verification_status_joint", "pymnt_plan"),
		varchar("url", 1024),
		[]Column{{Name: "descrb", Source: "desc", Type: Varchar, Width: 65535}},
		cols(Varchar, "purpose"),
		varchar("title", 512),
		cols(Float, "dti", "dti_joint"),
	),
}

// Borrowers is the borrower subject area.
var Borrowers = Dataset{
	Name:   "borrowers",
	Path:   "borrowers",
	Format: Parquet,
	Columns: join(
		key("borrower_id"),
		cols(Float, "annual_inc", "annual_inc_joint"),
		cols(Varchar, "emp_length"),
		varchar("emp_title", 512),
		cols(Varchar, "home_ownership", "zip_code", "addr_state"),
	),
}

// Payment is the payment subject area.
var Payment = Dataset{
	Name:   "payment",
	Path:   "payment",
	Format: Parquet,
	Columns: join(
		key("loan_id"),
		cols(Varchar, "loan_status"),
		cols(Float, "total_pymnt", "last_pymnt_amnt", "recoveries", "collection_recovery_fee",
			"out_prncp", "out_prncp_inv", "total_pymnt_inv", "total_rec_prncp", "total_rec_int",
			"total_rec_late_fee"),
		cols(Date, "next_pymnt_d", "last_pymnt_d"),
	),
}

// CreditHistory is the credit history subject area.
var CreditHistory = Dataset{
	Name:   "credit_history",
	Path:   "credit_history",
	Format: Parquet,
	Columns: join(
		key("borrower_id"),
		cols(Date, "earliest_cr_line", "last_credit_pull_d"),
		cols(Int, "acc_now_delinq", "acc_open_past_24mths"),
		cols(Float, "all_util", "avg_cur_bal", "bc_open_to_buy", "bc_util", "chargeoff_within_12_mths",
			"collections_12_mths_ex_med", "delinq_2yrs", "delinq_amnt", "il_util"),
		cols(Int, "inq_fi", "inq_last_12m", "inq_last_6mths"),
		cols(Float, "max_bal_bc"),
		cols(Int, "mo_sin_old_il_acct", "mo_sin_old_rev_tl_op", "mo_sin_rcnt_rev_tl_op", "mo_sin_rcnt_tl",
			"mort_acc", "mths_since_last_delinq", "mths_since_last_major_derog", "mths_since_last_record",
			"mths_since_rcnt_il", "mths_since_recent_bc", "mths_since_recent_bc_dlq", "mths_since_recent_inq",
			"mths_since_recent_revol_delinq", "num_accts_ever_120_pd", "num_actv_bc_tl", "num_actv_rev_tl",
			"num_bc_sats", "num_bc_tl", "num_il_tl", "num_op_rev_tl", "num_rev_accts", "num_rev_tl_bal_gt_0",
			"num_sats", "num_tl_120dpd_2m", "num_tl_30dpd", "num_tl_90g_dpd_24m", "num_tl_op_past_12m",
			"open_acc", "open_acc_6m", "open_il_12m", "open_il_24m", "open_act_il", "open_rv_12m", "open_rv_24m"),
		cols(Float, "pct_tl_nvr_dlq", "percent_bc_gt_75"),
		cols(Int, "policy_code", "pub_rec", "pub_rec_bankruptcies"),
		cols(Float, "revol_bal", "revol_util", "tax_liens", "tot_coll_amt", "tot_cur_bal", "tot_hi_cred_lim",
			"total_acc", "total_bal_ex_mort", "total_bal_il", "total_bc_limit", "total_cu_tl",
			"total_il_high_credit_limit"),
		cols(Int, "sec_app_open_act_il"),
		cols(Float, "total_rev_hi_lim", "revol_bal_joint"),
		cols(Date, "sec_app_earliest_cr_line"),
		cols(Int, "sec_app_inq_last_6mths"),
		cols(Float, "sec_app_mort_acc"),
		cols(Int, "sec_app_open_acc"),
		cols(Float, "sec_app_revol_util"),
		cols(Int, "sec_app_num_rev_accts"),
		cols(Float, "sec_app_chargeoff_within_12_mths", "sec_app_collections_12_mths_ex_med",
			"sec_app_mths_since_last_major_derog"),
	),
}

// BadDebtSettlement holds loans that went to debt settlement.
var BadDebtSettlement = Dataset{
	Name:   "bad_debt_settlement",
	Path:   "bad_debt_settlement",
	Format: Parquet,
	Filter: &Filter{Column: "debt_settlement_flag", Equals: "Y"},
	Columns: join(
		key("loan_id"),
		cols(Varchar, "debt_settlement_flag"),
		cols(Date, "debt_settlement_flag_date"),
		cols(Varchar, "settlement_status"),
		cols(Date, "settlement_date"),
		cols(Float, "settlement_amount", "settlement_percentage"),
		cols(Int, "settlement_term"),
	),
}

// Hardship holds loans under a hardship plan.
var Hardship = Dataset{
	Name:   "hardship",
	Path:   "hardship",
	Format: Parquet,
	Filter: &Filter{Column: "hardship_flag", Equals: "Y"},
	Columns: join(
		key("loan_id"),
		cols(Varchar, "hardship_flag", "hardship_type", "hardship_reason", "hardship_status"),
		cols(Int, "deferral_term"),
		cols(Float, "hardship_amount"),
		cols(Date, "hardship_start_date", "hardship_end_date", "payment_plan_start_date"),
		cols(Int, "hardship_length", "hardship_dpd"),
		cols(Varchar, "hardship_loan_status"),
		cols(Float, "orig_projected_additional_accrued_interest", "hardship_payoff_balance_amount",
			"hardship_last_payment_amount"),
	),
}

// StateDemo is the state-level demographic dataset.
var StateDemo = Dataset{
	Name:   "state_demo",
	Path:   "demographic/state_demo.csv",
	Format: CSV,
	Columns: join(
		[]Column{{Name: "state_code", Type: Varchar, Width: 2, NotNull: true}},
		cols(Varchar, "state_name"),
		cols(Float, "median_age", "avg_house_size"),
		cols(BigInt, "pop_total", "foreign_born", "no_veterans", "pop_male", "pop_female",
			"pop_american_natives", "pop_asian", "pop_black", "pop_hispanic", "pop_white"),
	),
}

// LoanDatasets returns the six loan subject areas in load order.
func LoanDatasets() []Dataset {
	return []Dataset{Loans, Borrowers, Payment, CreditHistory, BadDebtSettlement, Hardship}
}

// All returns every dataset the pipelines write.
func All() []Dataset {
	return append(LoanDatasets(), StateDemo)
}

// Lookup finds a dataset by name.
func Lookup(name string) (Dataset, error) {
	for _, d := range All() {
		if d.Name == name {
			return d, nil
		}
	}
	return Dataset{}, fmt.Errorf("unknown dataset %q", name)
}
