// Package catalog holds the static list of iperf3 measurement servers.
package catalog

import "github.com/nedomru/URMconfig/pkg/models"

// servers is the fixed catalog. Order matters: it is the tie-break for
// latency ranking.
var servers = []models.Endpoint{
	{Name: "Барнаул", Host: "iperf.barnaul.ertelecom.ru", RegionCode: "22", City: "barnaul"},
	{Name: "Брянск", Host: "iperf.bryansk.ertelecom.ru", RegionCode: "32", City: "bryansk"},
	{Name: "Волгоград", Host: "iperf.volgograd.ertelecom.ru", RegionCode: "34", City: "volgograd"},
	{Name: "Краснодар", Host: "iperf.krd.ertelecom.ru", RegionCode: "23", City: "krd"},
	{Name: "Москва", Host: "st.msk.ertelecom.ru", RegionCode: "77", City: "msk"},
	{Name: "Воронеж", Host: "iperf.voronezh.ertelecom.ru", RegionCode: "36", City: "voronezh"},
	{Name: "Екатеринбург", Host: "iperf.ekat.ertelecom.ru", RegionCode: "66", City: "ekat"},
	{Name: "Ижевск", Host: "iperf.izhevsk.ertelecom.ru", RegionCode: "18", City: "izhevsk"},
	{Name: "Йошкар-Ола", Host: "iperf.yola.ertelecom.ru", RegionCode: "12", City: "yola"},
	{Name: "Иркутск", Host: "iperf.irkutsk.ertelecom.ru", RegionCode: "38", City: "irkutsk"},
	{Name: "Казань", Host: "iperf.kzn.ertelecom.ru", RegionCode: "16", City: "kzn"},
	{Name: "Киров", Host: "iperf.kirov.ertelecom.ru", RegionCode: "43", City: "kirov"},
	{Name: "Красноярск", Host: "iperf.krsk.ertelecom.ru", RegionCode: "24", City: "krsk"},
	{Name: "Курган", Host: "iperf.kurgan.ertelecom.ru", RegionCode: "45", City: "kurgan"},
	{Name: "Курск", Host: "iperf.kursk.ertelecom.ru", RegionCode: "46", City: "kursk"},
	{Name: "Липецк", Host: "iperf.lipetsk.ertelecom.ru", RegionCode: "48", City: "lipetsk"},
	{Name: "Магнитогорск", Host: "iperf.mgn.ertelecom.ru", RegionCode: "274", City: "mgn"},
	{Name: "Набережные Челны", Host: "iperf.chelny.ertelecom.ru", RegionCode: "161", City: "chelny"},
	{Name: "Архангельск", Host: "iperf.arkhangelsk.ertelecom.ru", RegionCode: "29", City: "arkhangelsk"},
	{Name: "Нижний Новгород", Host: "iperf.nn.ertelecom.ru", RegionCode: "52", City: "nn"},
	{Name: "Новосибирск", Host: "iperf.nsk.ertelecom.ru", RegionCode: "54", City: "nsk"},
	{Name: "Омск", Host: "iperf.omsk.ertelecom.ru", RegionCode: "55", City: "omsk"},
	{Name: "Оренбург", Host: "iperf.oren.ertelecom.ru", RegionCode: "56", City: "oren"},
	{Name: "Пенза", Host: "iperf.penza.ertelecom.ru", RegionCode: "58", City: "penza"},
	{Name: "Пермь", Host: "iperf.perm.ertelecom.ru", RegionCode: "59", City: "perm"},
	{Name: "Ростов-на-Дону", Host: "iperf.rostov.ertelecom.ru", RegionCode: "61", City: "rostov"},
	{Name: "Рязань", Host: "iperf.ryazan.ertelecom.ru", RegionCode: "62", City: "ryazan"},
	{Name: "Самара", Host: "iperf.samara.ertelecom.ru", RegionCode: "63", City: "samara"},
	{Name: "Санкт-Петербург", Host: "iperf.spb.ertelecom.ru", RegionCode: "78", City: "spb"},
	{Name: "Саратов", Host: "iperf.saratov.ertelecom.ru", RegionCode: "64", City: "saratov"},
	{Name: "Тверь", Host: "iperf.tver.ertelecom.ru", RegionCode: "69", City: "tver"},
	{Name: "Томск", Host: "iperf.tomsk.ertelecom.ru", RegionCode: "70", City: "tomsk"},
	{Name: "Тула", Host: "iperf.tula.ertelecom.ru", RegionCode: "71", City: "tula"},
	{Name: "Тюмень", Host: "iperf.tmn.ertelecom.ru", RegionCode: "72", City: "tmn"},
	{Name: "Улан-Удэ", Host: "iperf.ulu.ertelecom.ru", RegionCode: "30", City: "ulu"},
	{Name: "Ульяновск", Host: "iperf.ulsk.ertelecom.ru", RegionCode: "73", City: "ulsk"},
	{Name: "Уфа", Host: "iperf.ufa.ertelecom.ru", RegionCode: "102", City: "ufa"},
	{Name: "Чебоксары", Host: "iperf.cheb.ertelecom.ru", RegionCode: "21", City: "cheb"},
	{Name: "Челябинск", Host: "iperf.chel.ertelecom.ru", RegionCode: "174", City: "chel"},
	{Name: "Ярославль", Host: "iperf.yar.ertelecom.ru", RegionCode: "76", City: "yar"},
}

// All returns the catalog in its fixed order. The returned slice is a copy;
// callers may reorder it freely.
func All() []models.Endpoint {
	out := make([]models.Endpoint, len(servers))
	copy(out, servers)
	return out
}
